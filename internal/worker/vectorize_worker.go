package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"applicant-rag/internal/ai"
	"applicant-rag/internal/app"
	"applicant-rag/internal/domain"
	"applicant-rag/internal/model"
	"applicant-rag/internal/platform/rabbitmq"
	"applicant-rag/internal/throttle"
)

type JobProcessor interface {
	Vectorize(ctx context.Context, in app.VectorizeInput) (*app.IngestResult, error)
	DeleteFileVectors(ctx context.Context, in app.DeleteInput) error
}

type outcome int

const (
	outcomeAck outcome = iota
	outcomeRequeue
	outcomeDrop
)

type VectorizeWorker struct {
	conn      *amqp.Connection
	processor JobProcessor
	queueName string
	prefetch  int
	log       zerolog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewVectorizeWorker(conn *amqp.Connection, processor JobProcessor, queueName string, prefetch int, log zerolog.Logger) *VectorizeWorker {
	if prefetch <= 0 {
		prefetch = 1
	}
	return &VectorizeWorker{
		conn:      conn,
		processor: processor,
		queueName: queueName,
		prefetch:  prefetch,
		log:       log.With().Str("component", "vectorize_worker").Str("queue", queueName).Logger(),
	}
}

func (w *VectorizeWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	if err := rabbitmq.DeclareQueue(ch, w.queueName); err != nil {
		_ = ch.Close()
		cancel()
		return err
	}
	if err := ch.Qos(w.prefetch, 0, false); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("set worker qos failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					w.log.Warn().Msg("delivery channel closed")
					return
				}
				w.handleDelivery(workerCtx, d)
			}
		}
	}()

	w.log.Info().Int("prefetch", w.prefetch).Msg("worker started")
	return nil
}

func (w *VectorizeWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}

func (w *VectorizeWorker) handleDelivery(ctx context.Context, d amqp.Delivery) {
	var job model.Job
	if err := json.Unmarshal(d.Body, &job); err != nil {
		w.log.Error().Err(err).Str("message_id", d.MessageId).Msg("decode job failed")
		_ = d.Nack(false, false)
		return
	}

	log := w.log.With().Str("job_id", job.ID).Str("kind", string(job.Kind)).Bool("redelivered", d.Redelivered).Logger()
	var err error
	switch w.process(ctx, job, d.Redelivered, log) {
	case outcomeAck:
		err = d.Ack(false)
	case outcomeRequeue:
		err = d.Nack(false, true)
	case outcomeDrop:
		err = d.Nack(false, false)
	}
	if err != nil {
		log.Error().Err(err).Msg("settle delivery failed")
	}
}

// process runs job and decides how its delivery is settled. A transient
// failure is requeued once; the redelivery first clears vectors written by
// the previous attempt.
func (w *VectorizeWorker) process(ctx context.Context, job model.Job, redelivered bool, log zerolog.Logger) outcome {
	tag, err := domain.ParseTag(job.Tag)
	if err != nil || job.AttorneyID == "" || job.ApplicantID == "" {
		log.Error().Err(err).Msg("invalid job dropped")
		return outcomeDrop
	}

	switch job.Kind {
	case model.JobVectorizeFiles:
		if len(job.Files) == 0 {
			log.Error().Msg("vectorize job without files dropped")
			return outcomeDrop
		}
		transient := false
		for _, f := range job.Files {
			in := app.VectorizeInput{AttorneyID: job.AttorneyID, ApplicantID: job.ApplicantID, Tag: tag, Path: f.Path, Filename: f.Filename}
			if redelivered {
				w.clearPrevious(ctx, in, log)
			}
			res, err := w.processor.Vectorize(ctx, in)
			if err == nil {
				log.Info().Str("filename", res.Filename).Int("chunks", res.ChunkCount).Str("status", string(res.Status)).Msg("job file processed")
				continue
			}
			if isTransient(err) {
				transient = true
			}
			log.Error().Err(err).Str("path", f.Path).Bool("transient", isTransient(err)).Msg("job file failed")
		}
		return settle(transient, redelivered)

	case model.JobDeleteFileVectors:
		err := w.processor.DeleteFileVectors(ctx, app.DeleteInput{
			AttorneyID: job.AttorneyID, ApplicantID: job.ApplicantID, Tag: tag, Filename: job.Filename,
		})
		if err == nil {
			log.Info().Str("filename", job.Filename).Msg("job vectors deleted")
			return outcomeAck
		}
		log.Error().Err(err).Msg("delete job failed")
		if !isTransient(err) {
			return outcomeDrop
		}
		return settle(true, redelivered)
	}

	log.Error().Msg("unknown job kind dropped")
	return outcomeDrop
}

func (w *VectorizeWorker) clearPrevious(ctx context.Context, in app.VectorizeInput, log zerolog.Logger) {
	filename := in.Filename
	if filename == "" {
		filename = filepath.Base(in.Path)
	}
	err := w.processor.DeleteFileVectors(ctx, app.DeleteInput{
		AttorneyID: in.AttorneyID, ApplicantID: in.ApplicantID, Tag: in.Tag, Filename: filename,
	})
	if err != nil {
		log.Warn().Err(err).Str("filename", filename).Msg("clear previous attempt failed")
	}
}

func settle(transient, redelivered bool) outcome {
	switch {
	case !transient:
		return outcomeAck
	case redelivered:
		return outcomeDrop
	default:
		return outcomeRequeue
	}
}

func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	return ai.Retryable(err) || errors.Is(err, throttle.ErrTimeout)
}
