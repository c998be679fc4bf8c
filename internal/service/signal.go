package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/totegamma/eform-core/internal/domain"
)

const submissionChannelPrefix = "eform:submission:"

func SubmissionChannel(formUUID string) string {
	return submissionChannelPrefix + formUUID
}

type SignalService struct {
	rdb *redis.Client
}

func NewSignalService(redisClient *redis.Client) *SignalService {
	return &SignalService{
		rdb: redisClient,
	}
}

// PublishSubmission is a no-op when no redis client is configured.
func (s *SignalService) PublishSubmission(ctx context.Context, event domain.SubmissionEvent) error {
	if s.rdb == nil {
		return nil
	}

	jsonstr, err := json.Marshal(event)
	if err != nil {
		return err
	}

	err = s.rdb.Publish(ctx, SubmissionChannel(event.FormUUID), jsonstr).Err()
	if err != nil {
		return err

	}

	return nil
}

// Realtime forwards the submissions of the forms last received on input to
// output until ctx is done or input is closed.
func (s *SignalService) Realtime(ctx context.Context, input <-chan []string, output chan<- domain.SubmissionEvent) {
	var pubsub *redis.PubSub
	var messages <-chan *redis.Message

	if s.rdb == nil {
		<-ctx.Done()
		return
	}

	defer func() {
		if pubsub != nil {
			pubsub.Close()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case forms, ok := <-input:
			if !ok {
				return
			}
			if pubsub != nil {
				pubsub.Close()
			}
			channels := make([]string, 0, len(forms))
			for _, f := range forms {
				channels = append(channels, SubmissionChannel(f))
			}
			pubsub = s.rdb.Subscribe(ctx, channels...)
			messages = pubsub.Channel()
		case msg, ok := <-messages:
			if !ok {
				messages = nil
				continue
			}
			var event domain.SubmissionEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				slog.ErrorContext(
					ctx, "Invalid submission event",
					slog.String("error", err.Error()),
					slog.String("module", "signal"),
				)
				continue
			}
			select {
			case output <- event:
			case <-ctx.Done():
				return
			}
		}
	}
}
