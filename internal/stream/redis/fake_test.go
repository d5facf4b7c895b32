package redis

import (
	"context"
	"sync"

	"github.com/povarna/generative-ai-agents/rag-eval/internal/intake"
	"github.com/povarna/generative-ai-agents/rag-eval/internal/models"
	"github.com/redis/go-redis/v9"
)

// fakeClient records stream calls and replays queued reads.
type fakeClient struct {
	mu       sync.Mutex
	groupErr error
	reads    []*redis.XStreamSliceCmd
	onEmpty  func()
	acked    []string
	added    []*redis.XAddArgs
	addErr   error
	claims   []claimPage
	claimed  []*redis.XAutoClaimArgs
}

type claimPage struct {
	msgs []redis.XMessage
	next string
	err  error
}

func (f *fakeClient) XGroupCreateMkStream(context.Context, string, string, string) *redis.StatusCmd {
	return redis.NewStatusResult("OK", f.groupErr)
}

func (f *fakeClient) XReadGroup(ctx context.Context, _ *redis.XReadGroupArgs) *redis.XStreamSliceCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.reads) == 0 {
		if f.onEmpty != nil {
			f.onEmpty()
		}
		return redis.NewXStreamSliceCmdResult(nil, ctx.Err())
	}
	next := f.reads[0]
	f.reads = f.reads[1:]
	return next
}

func (f *fakeClient) XAck(_ context.Context, _, _ string, ids ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acked = append(f.acked, ids...)
	return redis.NewIntResult(int64(len(ids)), nil)
}

func (f *fakeClient) XAutoClaim(ctx context.Context, a *redis.XAutoClaimArgs) *redis.XAutoClaimCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	args := *a
	f.claimed = append(f.claimed, &args)

	cmd := redis.NewXAutoClaimCmd(ctx)
	if len(f.claims) == 0 {
		cmd.SetVal(nil, "0-0")
		return cmd
	}
	page := f.claims[0]
	f.claims = f.claims[1:]
	cmd.SetVal(page.msgs, page.next)
	cmd.SetErr(page.err)
	return cmd
}

func (f *fakeClient) XAdd(_ context.Context, a *redis.XAddArgs) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return redis.NewStringResult("", f.addErr)
	}
	f.added = append(f.added, a)
	return redis.NewStringResult("1-0", nil)
}

type fakeExecutor struct {
	mu     sync.Mutex
	reqs   []intake.Request
	result models.EvaluationResult
	err    error
	hook   func()
}

func (f *fakeExecutor) Execute(_ context.Context, req intake.Request) (models.EvaluationResult, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	if f.hook != nil {
		f.hook()
	}
	return f.result, f.err
}
