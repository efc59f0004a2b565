package natsjs

import (
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

func TestBytesCodec(t *testing.T) {
	msg := &nats.Msg{Subject: "orders.created", Data: []byte("payload")}
	data, err := BytesCodec{}.Decode(msg)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), data)
}

func TestMsgCodec(t *testing.T) {
	msg := &nats.Msg{Subject: "orders.created", Data: []byte("payload")}
	got, err := MsgCodec{}.Decode(msg)
	require.NoError(t, err)
	assert.Same(t, msg, got)
}

func TestProtoCodec(t *testing.T) {
	payload, err := proto.Marshal(wrapperspb.String("hello"))
	require.NoError(t, err)

	codec := NewProtoCodec(func() *wrapperspb.StringValue {
		return &wrapperspb.StringValue{}
	})
	got, err := codec.Decode(&nats.Msg{Data: payload})
	require.NoError(t, err)
	assert.Equal(t, "hello", got.GetValue())
}

func TestProtoCodecRejectsGarbage(t *testing.T) {
	codec := NewProtoCodec(func() *wrapperspb.StringValue {
		return &wrapperspb.StringValue{}
	})
	_, err := codec.Decode(&nats.Msg{Data: []byte{0xff, 0xff, 0xff}})
	assert.Error(t, err)
}
