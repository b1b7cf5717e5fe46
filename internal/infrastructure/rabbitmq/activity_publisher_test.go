package rabbitmq

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-ddd-diary/internal/domain/entity"
)

type capture struct {
	msgType string
	body    any
}

func (c *capture) PublishJSON(_ context.Context, msgType string, body any) error {
	c.msgType, c.body = msgType, body
	return nil
}

func TestActivityPublisher_Publish(t *testing.T) {
	c := &capture{}
	a := entity.Activity{Kind: entity.ActivitySignedIn, UserID: "u1", Email: "kabilan.diary@example.com", At: time.Now()}

	require.NoError(t, NewActivityPublisher(c).Publish(context.Background(), a))
	assert.Equal(t, MessageType, c.msgType)
	assert.Equal(t, a, c.body)
}
