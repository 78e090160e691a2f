package workers

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultLifecycleStream = "call:lifecycle"

	LifecycleActive = "active"
	LifecycleEnded  = "ended"
)

// LifecycleEvent marks a call becoming active or ending. It travels on a Redis stream so
// call records are written off the websocket goroutines.
type LifecycleEvent struct {
	Type         string
	CallID       string
	InterviewID  string
	UserName     string
	TotalSeconds int
	At           time.Time

	// set on ended
	Reason string
	Error  string
}

func StatusChannel(callID string) string { return "call:" + callID + ":status" }

func (e LifecycleEvent) values() map[string]any {
	v := map[string]any{
		"type":          e.Type,
		"call_id":       e.CallID,
		"interview_id":  e.InterviewID,
		"total_seconds": strconv.Itoa(e.TotalSeconds),
		"ts_unix_ms":    strconv.FormatInt(e.At.UTC().UnixMilli(), 10),
	}
	if e.UserName != "" {
		v["user_name"] = e.UserName
	}
	if e.Reason != "" {
		v["reason"] = e.Reason
	}
	if e.Error != "" {
		v["error"] = e.Error
	}
	return v
}

var errBadLifecycle = errors.New("malformed lifecycle message")

func parseLifecycle(values map[string]any) (LifecycleEvent, error) {
	getStr := func(k string) string {
		v, ok := values[k]
		if !ok || v == nil {
			return ""
		}
		s, _ := v.(string)
		return s
	}

	ev := LifecycleEvent{
		Type:        getStr("type"),
		CallID:      getStr("call_id"),
		InterviewID: getStr("interview_id"),
		UserName:    getStr("user_name"),
		Reason:      getStr("reason"),
		Error:       getStr("error"),
	}
	if ev.CallID == "" || (ev.Type != LifecycleActive && ev.Type != LifecycleEnded) {
		return ev, errBadLifecycle
	}
	ev.TotalSeconds, _ = strconv.Atoi(getStr("total_seconds"))

	ms, err := strconv.ParseInt(getStr("ts_unix_ms"), 10, 64)
	if err != nil {
		return ev, errBadLifecycle
	}
	ev.At = time.UnixMilli(ms).UTC()
	return ev, nil
}

// RedisPublisher fans call state out to pub/sub subscribers and queues lifecycle events.
type RedisPublisher struct {
	rdb    *redis.Client
	stream string
}

func NewRedisPublisher(rdb *redis.Client, stream string) *RedisPublisher {
	if stream == "" {
		stream = DefaultLifecycleStream
	}
	return &RedisPublisher{rdb: rdb, stream: stream}
}

func (p *RedisPublisher) PublishStatus(ctx context.Context, callID string, payload []byte) error {
	return p.rdb.Publish(ctx, StatusChannel(callID), payload).Err()
}

func (p *RedisPublisher) PublishLifecycle(ctx context.Context, ev LifecycleEvent) error {
	return p.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: 100000,
		Approx: true,
		Values: ev.values(),
	}).Err()
}
