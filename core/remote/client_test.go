package remote

import (
	"context"
	"testing"

	"exercise-sync/core/gateway"
	"exercise-sync/core/record"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRequester struct {
	mock.Mock
}

func (m *mockRequester) Request(ctx context.Context, endpoint string, payload any) (*gateway.Response, error) {
	args := m.Called(ctx, endpoint, payload)
	if resp, ok := args.Get(0).(*gateway.Response); ok {
		return resp, args.Error(1)
	}
	return nil, args.Error(1)
}

func ok(data string) *gateway.Response {
	return &gateway.Response{Status: 200, Data: json.RawMessage(data)}
}

func TestListAll_PagesUntilShortPage(t *testing.T) {
	m := new(mockRequester)
	m.On("Request", mock.Anything, EndpointList, listRequest{Page: 1, PageSize: 2}).
		Return(ok(`[{"id":1,"name":"Squat"},{"id":"2","title":"Lunge"}]`), nil)
	m.On("Request", mock.Anything, EndpointList, listRequest{Page: 2, PageSize: 2}).
		Return(ok(`{"items":[{"_id":"3","name":"Plank","category":"core"}]}`), nil)

	c := NewClient(m, 2, nil)
	recs, err := c.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 3)

	assert.Equal(t, "1", recs[0].ExternalID)
	assert.Equal(t, "Squat", recs[0].Name)
	assert.Equal(t, "Lunge", recs[1].Name)
	assert.Equal(t, "3", recs[2].ExternalID)
	assert.Equal(t, "core", recs[2].Fields["category"])
	m.AssertNumberOfCalls(t, "Request", 2)
}

func TestListAll_HonorsHasMore(t *testing.T) {
	m := new(mockRequester)
	m.On("Request", mock.Anything, EndpointList, listRequest{Page: 1, PageSize: 1}).
		Return(ok(`{"exercises":[{"id":1,"name":"A"}],"hasMore":true}`), nil)
	m.On("Request", mock.Anything, EndpointList, listRequest{Page: 2, PageSize: 1}).
		Return(ok(`{"exercises":[{"id":2,"name":"B"}],"hasMore":false}`), nil)

	recs, err := NewClient(m, 1, nil).ListAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, recs, 2)
	m.AssertNumberOfCalls(t, "Request", 2)
}

func TestListAll_SkipsItemsWithoutID(t *testing.T) {
	m := new(mockRequester)
	m.On("Request", mock.Anything, EndpointList, mock.Anything).
		Return(ok(`{"data":[{"name":"orphan"},{"id":9,"name":"Row"}]}`), nil).Once()

	recs, err := NewClient(m, 10, nil).ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "9", recs[0].ExternalID)
}

func TestListAll_PropagatesGatewayError(t *testing.T) {
	m := new(mockRequester)
	m.On("Request", mock.Anything, EndpointList, mock.Anything).
		Return(nil, &gateway.AuthError{Status: 401})

	_, err := NewClient(m, 10, nil).ListAll(context.Background())
	var ae *gateway.AuthError
	assert.ErrorAs(t, err, &ae)
}

func TestCreate_ReturnsIDFromVariousShapes(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"Object", `{"id":42}`, "42"},
		{"Nested", `{"exercise":{"id":"abc"}}`, "abc"},
		{"Bare", `"xyz"`, "xyz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := new(mockRequester)
			m.On("Request", mock.Anything, EndpointCreate, mock.MatchedBy(func(p map[string]any) bool {
				return p["name"] == "Squat" && p["tags"] != nil
			})).Return(ok(tt.data), nil)

			id, err := NewClient(m, 0, nil).Create(context.Background(),
				record.Fields{"name": "Squat"}, []record.Tag{{Type: "category", Name: "legs"}})
			require.NoError(t, err)
			assert.Equal(t, tt.want, id)
		})
	}
}

func TestCreate_MissingID(t *testing.T) {
	m := new(mockRequester)
	m.On("Request", mock.Anything, EndpointCreate, mock.Anything).Return(ok(`{"ok":true}`), nil)

	_, err := NewClient(m, 0, nil).Create(context.Background(), record.Fields{"name": "x"}, nil)
	assert.Error(t, err)
}

func TestUpdate_SendsID(t *testing.T) {
	m := new(mockRequester)
	m.On("Request", mock.Anything, EndpointUpdate, mock.MatchedBy(func(p map[string]any) bool {
		return p["id"] == "r1" && p["name"] == "Front Squat"
	})).Return(ok(`{"code":0}`), nil)

	err := NewClient(m, 0, nil).Update(context.Background(), "r1", record.Fields{"name": "Front Squat"}, nil)
	assert.NoError(t, err)
	m.AssertExpectations(t)
}

func TestUpdate_MissingRemoteRecord(t *testing.T) {
	m := new(mockRequester)
	m.On("Request", mock.Anything, EndpointUpdate, mock.Anything).
		Return(&gateway.Response{Status: 404, NotFound: true}, nil)

	err := NewClient(m, 0, nil).Update(context.Background(), "gone", record.Fields{"name": "Row"}, nil)
	assert.ErrorIs(t, err, gateway.ErrNotFound)
}

func TestListAll_DecodesMixedTags(t *testing.T) {
	m := new(mockRequester)
	m.On("Request", mock.Anything, EndpointList, mock.Anything).
		Return(ok(`[{"id":7,"name":"Row","tags":[{"type":"equipment","name":"cable"},"pull"]}]`), nil).Once()

	recs, err := NewClient(m, 10, nil).ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, []record.Tag{{Type: "equipment", Name: "cable"}, {Name: "pull"}}, recs[0].Tags)
}
