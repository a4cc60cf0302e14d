package redpanda

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kmsg"
)

type requesterStub struct {
	resp kmsg.Response
	err  error
	got  *kmsg.CreateTopicsRequest
}

func (r *requesterStub) Request(_ context.Context, req kmsg.Request) (kmsg.Response, error) {
	r.got, _ = req.(*kmsg.CreateTopicsRequest)
	return r.resp, r.err
}

func topicsResponse(code int16) *kmsg.CreateTopicsResponse {
	resp := kmsg.NewPtrCreateTopicsResponse()
	t := kmsg.NewCreateTopicsResponseTopic()
	t.Topic = TopicRankRequests
	t.ErrorCode = code
	resp.Topics = append(resp.Topics, t)
	return resp
}

func TestCreateTopicIfNotExists(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		stub    *requesterStub
		wantErr bool
	}{
		{"created", &requesterStub{resp: topicsResponse(0)}, false},
		{"already_exists", &requesterStub{resp: topicsResponse(kerr.TopicAlreadyExists.Code)}, false},
		{"broker_error", &requesterStub{resp: topicsResponse(kerr.InvalidReplicationFactor.Code)}, true},
		{"request_failed", &requesterStub{err: errors.New("dial tcp: refused")}, true},
		{"wrong_response", &requesterStub{resp: kmsg.NewPtrMetadataResponse()}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := createTopicIfNotExists(context.Background(), tt.stub, TopicRankRequests, 3, 1)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, tt.stub.got)
			require.Len(t, tt.stub.got.Topics, 1)
			assert.Equal(t, int32(3), tt.stub.got.Topics[0].NumPartitions)
			assert.Equal(t, int16(1), tt.stub.got.Topics[0].ReplicationFactor)
		})
	}
}

func TestCreateTopicIfNotExists_Validation(t *testing.T) {
	t.Parallel()
	stub := &requesterStub{resp: topicsResponse(0)}
	assert.Error(t, createTopicIfNotExists(context.Background(), stub, "", 1, 1))
	assert.Error(t, createTopicIfNotExists(context.Background(), stub, "t", 0, 1))
	assert.Error(t, createTopicIfNotExists(context.Background(), stub, "t", 1, 0))
	assert.Nil(t, stub.got, "no request sent for invalid input")
}
