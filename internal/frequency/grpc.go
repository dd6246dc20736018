package frequency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/suenchunyu/word-frequency/internal/job"
	"github.com/suenchunyu/word-frequency/internal/model"
	"github.com/suenchunyu/word-frequency/internal/storage"
	"github.com/suenchunyu/word-frequency/pkg/aggregate"
	"github.com/suenchunyu/word-frequency/pkg/rank"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/timestamppb"
)

var (
	ErrEmptyRequest     = errors.New("request names neither text nor objects")
	ErrAmbiguousRequest = errors.New("request names both text and objects")
	ErrInvalidObject    = errors.New("objects must be a list of strings")
)

// GrpcService answers Rank requests by running a job.
//
// Request fields:
//
//	text    string, counted as one input
//	objects list of object names read from the task store
//	persist bool, store the result
//
// Response fields:
//
//	job_id      string
//	words       number of distinct words
//	entries     list of {sort_key, payload}
//	result      stored object name, empty unless persisted
//	finished_at RFC 3339 time
type GrpcService struct {
	runner *job.Runner
	logger zerolog.Logger
}

var _ FrequencyServiceServer = new(GrpcService)

func NewGrpcService(runner *job.Runner, logger zerolog.Logger) *GrpcService {
	return &GrpcService{
		runner: runner,
		logger: logger,
	}
}

func (g *GrpcService) Rank(ctx context.Context, request *structpb.Struct) (*structpb.Struct, error) {
	fields := request.GetFields()
	persist := fields["persist"].GetBoolValue()
	text, hasText := fields["text"]
	objects, hasObjects := fields["objects"]

	var (
		j       *model.Job
		entries []rank.Entry[string, string]
		err     error
	)
	switch {
	case hasText && hasObjects:
		err = ErrAmbiguousRequest
	case hasText:
		j, entries, err = g.runner.RunText(ctx, text.GetStringValue(), persist)
	case hasObjects:
		var names []string
		if names, err = objectNames(objects); err == nil {
			j, entries, err = g.runner.Run(ctx, names, persist)
		}
	default:
		err = ErrEmptyRequest
	}
	if err != nil {
		g.logger.Warn().Err(err).Msg("rank request failed")
		return nil, statusFromError(err)
	}

	return encodeResponse(j, entries)
}

func objectNames(v *structpb.Value) ([]string, error) {
	list := v.GetListValue()
	if list == nil {
		return nil, ErrInvalidObject
	}

	names := make([]string, 0, len(list.GetValues()))
	for _, item := range list.GetValues() {
		s, ok := item.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return nil, ErrInvalidObject
		}
		names = append(names, s.StringValue)
	}
	return names, nil
}

func encodeResponse(j *model.Job, entries []rank.Entry[string, string]) (*structpb.Struct, error) {
	list := make([]interface{}, 0, len(entries))
	for _, e := range entries {
		list = append(list, map[string]interface{}{
			"sort_key": e.SortKey,
			"payload":  e.Payload,
		})
	}

	response, err := structpb.NewStruct(map[string]interface{}{
		"job_id":      j.ID,
		"words":       j.Words,
		"entries":     list,
		"result":      j.Result,
		"finished_at": timestamppb.Now().AsTime().Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return response, nil
}

// statusFromError maps run errors onto gRPC status codes. Overflow is
// checked before rekey as an overflow may surface wrapped in a rekey error.
func statusFromError(err error) error {
	if _, ok := status.FromError(err); ok {
		return err
	}

	var code codes.Code
	switch {
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	case errors.Is(err, rank.ErrOverflow):
		code = codes.OutOfRange
	case errors.Is(err, rank.ErrRekey):
		code = codes.Internal
	case errors.Is(err, storage.ErrNotFound):
		code = codes.NotFound
	case errors.Is(err, job.ErrNoResultStore):
		code = codes.FailedPrecondition
	case errors.Is(err, aggregate.ErrInvalidRecord),
		errors.Is(err, storage.ErrInvalidName),
		errors.Is(err, job.ErrNoInput),
		errors.Is(err, ErrEmptyRequest),
		errors.Is(err, ErrAmbiguousRequest),
		errors.Is(err, ErrInvalidObject):
		code = codes.InvalidArgument
	default:
		code = codes.Internal
	}
	return status.Error(code, fmt.Sprint(err))
}
