package workers

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/aicruiter/internal/models"
	"github.com/yoockh/aicruiter/internal/services"
	"github.com/yoockh/aicruiter/internal/storage"
	"github.com/yoockh/aicruiter/internal/utils"
)

type LifecyclePool struct {
	Redis      *redis.Client
	Calls      services.CallService
	Archive    storage.Uploader // optional
	NumWorkers int

	Logger *logrus.Logger

	Stream         string
	Group          string
	ConsumerPrefix string

	// Messages that fail are left pending and claimed again once idle for RetryAfter,
	// at most MaxDeliveries times. Consumers in one group share no ordering, so an
	// "ended" event can arrive before its "active" one and needs the retry.
	RetryAfter    time.Duration
	MaxDeliveries int64
}

func (p *LifecyclePool) Start(ctx context.Context) error {
	if p.Redis == nil || p.Calls == nil {
		return errors.New("LifecyclePool missing dependency: Redis/Calls must be set")
	}
	p.defaults()

	_ = p.Redis.XGroupCreateMkStream(ctx, p.Stream, p.Group, "0").Err() // ignore BUSYGROUP

	for i := 0; i < p.NumWorkers; i++ {
		consumer := p.ConsumerPrefix + "-" + strconv.Itoa(i+1)
		go p.runConsumer(ctx, consumer)
	}
	p.Logger.WithFields(logrus.Fields{
		"stream":  p.Stream,
		"group":   p.Group,
		"workers": p.NumWorkers,
	}).Info("lifecycle workers started")
	return nil
}

func (p *LifecyclePool) defaults() {
	if p.Stream == "" {
		p.Stream = DefaultLifecycleStream
	}
	if p.Group == "" {
		p.Group = "call-lifecycle"
	}
	if p.ConsumerPrefix == "" {
		p.ConsumerPrefix = "c"
	}
	if p.NumWorkers <= 0 {
		p.NumWorkers = 2
	}
	if p.RetryAfter <= 0 {
		p.RetryAfter = 30 * time.Second
	}
	if p.MaxDeliveries <= 0 {
		p.MaxDeliveries = 5
	}
	if p.Logger == nil {
		p.Logger = logrus.New()
	}
}

func (p *LifecyclePool) runConsumer(ctx context.Context, consumer string) {
	lastReclaim := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res, err := p.Redis.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    p.Group,
			Consumer: consumer,
			Streams:  []string{p.Stream, ">"},
			Count:    10,
			Block:    5 * time.Second,
		}).Result()

		if err != nil && err != redis.Nil {
			time.Sleep(500 * time.Millisecond)
			continue
		}

		for _, stream := range res {
			for _, msg := range stream.Messages {
				p.process(ctx, msg)
			}
		}

		if time.Since(lastReclaim) >= p.RetryAfter {
			p.reclaim(ctx, consumer)
			lastReclaim = time.Now()
		}
	}
}

func (p *LifecyclePool) process(ctx context.Context, msg redis.XMessage) {
	if p.handleMsg(ctx, msg) {
		_ = p.Redis.XAck(ctx, p.Stream, p.Group, msg.ID).Err()
	}
}

// reclaim takes over messages that sat unacked for RetryAfter and handles them again.
func (p *LifecyclePool) reclaim(ctx context.Context, consumer string) {
	pending, err := p.Redis.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: p.Stream,
		Group:  p.Group,
		Idle:   p.RetryAfter,
		Start:  "-",
		End:    "+",
		Count:  10,
	}).Result()
	if err != nil {
		if ctx.Err() == nil {
			p.Logger.WithError(err).Warn("lifecycle pending scan failed")
		}
		return
	}

	for _, pe := range pending {
		if pe.RetryCount >= p.MaxDeliveries {
			p.Logger.WithFields(logrus.Fields{
				"redis_id":   pe.ID,
				"deliveries": pe.RetryCount,
			}).Error("giving up on lifecycle message")
			_ = p.Redis.XAck(ctx, p.Stream, p.Group, pe.ID).Err()
			continue
		}

		msgs, err := p.Redis.XClaim(ctx, &redis.XClaimArgs{
			Stream:   p.Stream,
			Group:    p.Group,
			Consumer: consumer,
			MinIdle:  p.RetryAfter,
			Messages: []string{pe.ID},
		}).Result()
		if err != nil {
			continue
		}
		for _, msg := range msgs {
			p.process(ctx, msg)
		}
	}
}

// handleMsg reports whether msg is finished with and can be acked.
func (p *LifecyclePool) handleMsg(ctx context.Context, msg redis.XMessage) bool {
	ev, err := parseLifecycle(msg.Values)
	if err != nil {
		p.Logger.WithField("redis_id", msg.ID).WithError(err).Warn("dropping lifecycle message")
		return true
	}

	err = p.handle(ctx, ev)
	if err == nil {
		return true
	}
	log := p.Logger.WithFields(logrus.Fields{
		"redis_id": msg.ID,
		"call_id":  ev.CallID,
		"type":     ev.Type,
	}).WithError(err)
	if utils.IsCode(err, utils.CodeInvalidArgument) {
		log.Error("dropping lifecycle message")
		return true
	}
	log.Warn("lifecycle handling failed, leaving it pending")
	return false
}

func (p *LifecyclePool) handle(ctx context.Context, ev LifecycleEvent) error {
	log := p.Logger.WithFields(logrus.Fields{
		"call_id":      ev.CallID,
		"interview_id": ev.InterviewID,
	})

	switch ev.Type {
	case LifecycleActive:
		err := p.Calls.Start(ctx, &models.CallRecord{
			CallID:       ev.CallID,
			InterviewID:  ev.InterviewID,
			UserName:     ev.UserName,
			TotalSeconds: ev.TotalSeconds,
			StartedAt:    ev.At,
		})
		if utils.IsCode(err, utils.CodeConflict) {
			log.Debug("call record already open")
			return nil
		}
		if err != nil {
			return err
		}
		log.Info("call record opened")

	case LifecycleEnded:
		rec, err := p.Calls.End(ctx, ev.CallID, ev.At, ev.Reason, ev.Error)
		if err != nil {
			return err
		}
		log.WithFields(logrus.Fields{
			"reason":           rec.EndReason,
			"duration_seconds": rec.DurationSeconds,
		}).Info("call record closed")

		if p.Archive == nil {
			return nil
		}
		path, err := storage.PutJSON(ctx, p.Archive, storage.CallArchiveObject(rec.InterviewID, rec.CallID), rec)
		if err != nil {
			return err
		}
		log.WithField("path", path).Debug("call archived")
	}
	return nil
}
