package flowhub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/flowhub/pkg/flowhub/binder"
	"github.com/randalmurphal/flowhub/pkg/flowhub/event/eventtest"
)

func TestRequest_Reply(t *testing.T) {
	h := newTestHub(t)
	server := quietFlow("server")
	client := quietFlow("client")
	h.Attach(server)
	h.Attach(client)

	server.Subscribe(eventtest.NewLoginReq(), binder.Typed(func(ctx context.Context, req *eventtest.LoginReq) error {
		resp := eventtest.NewLoginResp().SetAccount(req.Account()).SetOK(req.Password() == "pw")
		Reply(req, resp)
		cur, _ := CurrentFlow(ctx)
		cur.Post(resp)
		return nil
	}))
	require.NoError(t, h.Startup(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), eventually)
	defer cancel()

	req := eventtest.NewLoginReq().SetAccount("alice").SetPassword("pw")
	resp, err := Request(ctx, client, req, eventtest.NewLoginResp())
	require.NoError(t, err)

	lr, ok := resp.(*eventtest.LoginResp)
	require.True(t, ok)
	assert.Equal(t, "alice", lr.Account())
	assert.True(t, lr.OK())
	assert.Equal(t, req.WaitHandle(), lr.WaitHandle())
	assert.NotZero(t, lr.WaitHandle())
	assert.Equal(t, 2, client.Binder().Len(), "only lifecycle bindings remain")
}

func TestAwait_Timeout(t *testing.T) {
	f := quietFlow("await")
	startFlow(t, f)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := Await(ctx, f, eventtest.NewLoginResp())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 2, f.Binder().Len(), "only lifecycle bindings remain")
}

func TestAwait_Receives(t *testing.T) {
	f := quietFlow("await")
	startFlow(t, f)

	go func() {
		time.Sleep(10 * time.Millisecond)
		f.Feed(eventtest.NewLoginResp().SetAccount("x"))
	}()

	ctx, cancel := context.WithTimeout(context.Background(), eventually)
	defer cancel()
	e, err := Await(ctx, f, eventtest.NewLoginResp().SetAccount("x"))
	require.NoError(t, err)
	assert.Equal(t, "x", e.(*eventtest.LoginResp).Account())
}

func TestNextWaitHandle_Unique(t *testing.T) {
	a := NextWaitHandle()
	b := NextWaitHandle()
	assert.NotZero(t, a)
	assert.NotEqual(t, a, b)
}
