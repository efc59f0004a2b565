// Package natsjs merges NATS subscriptions through a stream junction:
// every subscription is one producer, and a feed of subject names can
// act as the source-of-sources for subjects that appear over time.
package natsjs

import (
	"fmt"

	"github.com/nats-io/nats.go"
	"google.golang.org/protobuf/proto"
)

// Codec decodes a raw NATS message into the junction's value type.
type Codec[T any] interface {
	Decode(msg *nats.Msg) (T, error)
}

// BytesCodec passes message payloads through untouched.
type BytesCodec struct{}

func (BytesCodec) Decode(msg *nats.Msg) ([]byte, error) {
	return msg.Data, nil
}

var _ Codec[[]byte] = BytesCodec{}

// MsgCodec yields the raw *nats.Msg, headers included.
type MsgCodec struct{}

func (MsgCodec) Decode(msg *nats.Msg) (*nats.Msg, error) {
	return msg, nil
}

var _ Codec[*nats.Msg] = MsgCodec{}

// ProtoCodec unmarshals payloads into freshly allocated protobuf
// messages. Messages generated with a fast-path UnmarshalVT are
// detected and used without reflection.
type ProtoCodec[T proto.Message] struct {
	newMessage func() T
}

func NewProtoCodec[T proto.Message](newMessage func() T) ProtoCodec[T] {
	return ProtoCodec[T]{newMessage: newMessage}
}

func (pc ProtoCodec[T]) Decode(msg *nats.Msg) (T, error) {
	m := pc.newMessage()
	if vt, ok := any(m).(interface{ UnmarshalVT([]byte) error }); ok {
		if err := vt.UnmarshalVT(msg.Data); err != nil {
			return m, fmt.Errorf("natsjs: unmarshal payload: %w", err)
		}
		return m, nil
	}
	if err := proto.Unmarshal(msg.Data, m); err != nil {
		return m, fmt.Errorf("natsjs: unmarshal payload: %w", err)
	}
	return m, nil
}
