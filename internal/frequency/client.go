package frequency

import (
	"context"
	"time"

	"github.com/suenchunyu/word-frequency/internal/config"
	"github.com/suenchunyu/word-frequency/pkg/rank"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// Result is a decoded Rank response.
type Result struct {
	JobID      string
	Words      int
	Entries    []rank.Entry[string, string]
	Object     string
	FinishedAt time.Time
}

type Client struct {
	conn *grpc.ClientConn
}

// DefaultMaxMessageSize bounds Rank requests and responses unless
// configured otherwise.
const DefaultMaxMessageSize = config.DefaultMaxMessageSize

// WithMaxMessageSize bounds the messages a client sends and receives.
func WithMaxMessageSize(n int) grpc.DialOption {
	return grpc.WithDefaultCallOptions(
		grpc.MaxCallRecvMsgSize(n),
		grpc.MaxCallSendMsgSize(n),
	)
}

// Dial connects to a FrequencyService at target, without transport
// security unless opts say otherwise. Messages are bounded by
// DefaultMaxMessageSize unless opts carry WithMaxMessageSize.
func Dial(target string, opts ...grpc.DialOption) (*Client, error) {
	if len(opts) == 0 {
		opts = []grpc.DialOption{grpc.WithInsecure()}
	}
	opts = append([]grpc.DialOption{WithMaxMessageSize(DefaultMaxMessageSize)}, opts...)

	conn, err := grpc.Dial(target, opts...)
	if err != nil {
		return nil, err
	}
	return NewClient(conn), nil
}

func NewClient(conn *grpc.ClientConn) *Client {
	return &Client{conn: conn}
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// Rank sends a raw request.
func (c *Client) Rank(ctx context.Context, request *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, rankMethod, request, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) RankText(ctx context.Context, text string, persist bool) (*Result, error) {
	return c.rank(ctx, map[string]interface{}{
		"text":    text,
		"persist": persist,
	})
}

func (c *Client) RankObjects(ctx context.Context, objects []string, persist bool) (*Result, error) {
	list := make([]interface{}, 0, len(objects))
	for _, o := range objects {
		list = append(list, o)
	}
	return c.rank(ctx, map[string]interface{}{
		"objects": list,
		"persist": persist,
	})
}

func (c *Client) rank(ctx context.Context, fields map[string]interface{}) (*Result, error) {
	request, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}

	response, err := c.Rank(ctx, request)
	if err != nil {
		return nil, err
	}
	return decodeResponse(response)
}

func decodeResponse(response *structpb.Struct) (*Result, error) {
	fields := response.GetFields()
	r := &Result{
		JobID:  fields["job_id"].GetStringValue(),
		Words:  int(fields["words"].GetNumberValue()),
		Object: fields["result"].GetStringValue(),
	}

	if at := fields["finished_at"].GetStringValue(); at != "" {
		t, err := time.Parse(time.RFC3339Nano, at)
		if err != nil {
			return nil, err
		}
		r.FinishedAt = t
	}

	values := fields["entries"].GetListValue().GetValues()
	r.Entries = make([]rank.Entry[string, string], 0, len(values))
	for _, v := range values {
		e := v.GetStructValue().GetFields()
		r.Entries = append(r.Entries, rank.Entry[string, string]{
			SortKey: e["sort_key"].GetStringValue(),
			Payload: e["payload"].GetStringValue(),
		})
	}
	return r, nil
}
