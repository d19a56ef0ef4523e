package articlemeta

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/apache/thrift/lib/go/thrift"
	"golang.org/x/time/rate"

	"github.com/scieloorg/doaj-exporter/internal/core/domain"
	"github.com/scieloorg/doaj-exporter/internal/core/ports/driven"
	"github.com/scieloorg/doaj-exporter/internal/logger"
)

// DefaultThriftDomain is the public catalogue thrift endpoint.
const DefaultThriftDomain = "articlemeta.scielo.org:11621"

// Thrift method names served by the catalogue.
const (
	methodGetArticle     = "get_article"
	methodGetIdentifiers = "get_article_identifiers"
)

// Ensure ThriftClient implements the interface.
var _ driven.SourceClient = (*ThriftClient)(nil)

// ThriftClient queries the catalogue over its thrift binary protocol. The
// service returns the same JSON payloads as the restful API, carried as
// thrift strings, so both transports share one decoder.
//
// A thrift connection serialises one call at a time; the mutex keeps
// concurrent dispatch workers from interleaving frames.
type ThriftClient struct {
	mu        sync.Mutex
	transport thrift.TTransport
	client    *thrift.TStandardClient
	limiter   *rate.Limiter
}

// NewThriftClient dials the catalogue thrift endpoint. An empty domain
// selects the public endpoint.
func NewThriftClient(settings domain.Settings) (*ThriftClient, error) {
	addr := settings.Domain
	if addr == "" {
		addr = DefaultThriftDomain
	}

	conf := &thrift.TConfiguration{
		ConnectTimeout: settings.Timeout,
		SocketTimeout:  settings.Timeout,
	}
	socket := thrift.NewTSocketConf(addr, conf)
	transport := thrift.NewTFramedTransportConf(socket, conf)
	if err := transport.Open(); err != nil {
		return nil, fmt.Errorf("%w: connecting to %s: %v", domain.ErrTransient, addr, err)
	}

	proto := thrift.NewTBinaryProtocolConf(transport, conf)
	return &ThriftClient{
		transport: transport,
		client:    thrift.NewTStandardClient(proto, proto),
		limiter:   rate.NewLimiter(rate.Limit(settings.RequestRate), 1),
	}, nil
}

// Document fetches the full source record for one PID.
func (c *ThriftClient) Document(ctx context.Context, collection, pid string) (*domain.SourceDocument, error) {
	payload, err := c.call(ctx, methodGetArticle, &getArticleArgs{
		Code:       pid,
		Collection: collection,
		Fmt:        "json",
	})
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", pid, err)
	}
	if payload == "" || payload == "null" {
		return nil, domain.ErrNotFound
	}
	return parseDocument([]byte(payload))
}

// Identifiers streams the identifiers listing page by page, mirroring the
// restful transport.
func (c *ThriftClient) Identifiers(ctx context.Context, filter driven.IdentifierFilter) (<-chan domain.Identifier, <-chan error) {
	ids := make(chan domain.Identifier)
	errs := make(chan error, 1)

	go func() {
		defer close(ids)
		defer close(errs)

		args := &getIdentifiersArgs{
			Collection: filter.Collection,
			Limit:      identifiersPageSize,
		}
		if filter.FromDate != nil {
			args.From = filter.FromDate.Format("2006-01-02")
		}
		if filter.UntilDate != nil {
			args.Until = filter.UntilDate.Format("2006-01-02")
		}

		for {
			payload, err := c.call(ctx, methodGetIdentifiers, args)
			if err != nil {
				errs <- fmt.Errorf("listing identifiers at offset %d: %w", args.Offset, err)
				return
			}

			var page wireIdentifierPage
			if err := unmarshalPage([]byte(payload), &page); err != nil {
				errs <- err
				return
			}
			if len(page.Objects) == 0 {
				return
			}

			for _, obj := range page.Objects {
				select {
				case <-ctx.Done():
					errs <- ctx.Err()
					return
				case ids <- domain.Identifier{
					PID:            obj.Code,
					Collection:     obj.Collection,
					ProcessingDate: obj.ProcessingDate,
				}:
				}
			}

			args.Offset += int32(len(page.Objects))
			if page.Meta.Total > 0 && int(args.Offset) >= page.Meta.Total {
				return
			}
		}
	}()

	return ids, errs
}

// Close shuts the thrift transport down.
func (c *ThriftClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transport.Close()
}

// call performs one throttled thrift call returning a string payload.
func (c *ThriftClient) call(ctx context.Context, method string, args thrift.TStruct) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	logger.Debug("thrift %s", method)

	c.mu.Lock()
	defer c.mu.Unlock()

	var result stringResult
	if _, err := c.client.Call(ctx, method, args, &result); err != nil {
		return "", classifyThriftError(err)
	}
	if result.Success == nil {
		return "", fmt.Errorf("%s returned no payload", method)
	}
	return *result.Success, nil
}

// classifyThriftError folds transport-level failures into the retryable
// error class; application exceptions stay as-is.
func classifyThriftError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var tte thrift.TTransportException
	if errors.As(err, &tte) {
		return fmt.Errorf("%w: %v", domain.ErrTransient, err)
	}
	return err
}

// getArticleArgs is the wire argument struct of get_article.
type getArticleArgs struct {
	Code       string // field 1
	Collection string // field 2
	Fmt        string // field 3
}

func (a *getArticleArgs) Write(ctx context.Context, p thrift.TProtocol) error {
	if err := p.WriteStructBegin(ctx, "get_article_args"); err != nil {
		return err
	}
	if err := writeStringField(ctx, p, "code", 1, a.Code); err != nil {
		return err
	}
	if err := writeStringField(ctx, p, "collection", 2, a.Collection); err != nil {
		return err
	}
	if err := writeStringField(ctx, p, "fmt", 3, a.Fmt); err != nil {
		return err
	}
	if err := p.WriteFieldStop(ctx); err != nil {
		return err
	}
	return p.WriteStructEnd(ctx)
}

func (a *getArticleArgs) Read(ctx context.Context, p thrift.TProtocol) error {
	return thrift.NewTProtocolException(errors.New("get_article_args is write-only"))
}

// getIdentifiersArgs is the wire argument struct of
// get_article_identifiers.
type getIdentifiersArgs struct {
	Collection string // field 1
	From       string // field 2
	Until      string // field 3
	Limit      int32  // field 4
	Offset     int32  // field 5
}

func (a *getIdentifiersArgs) Write(ctx context.Context, p thrift.TProtocol) error {
	if err := p.WriteStructBegin(ctx, "get_article_identifiers_args"); err != nil {
		return err
	}
	if err := writeStringField(ctx, p, "collection", 1, a.Collection); err != nil {
		return err
	}
	if err := writeStringField(ctx, p, "from", 2, a.From); err != nil {
		return err
	}
	if err := writeStringField(ctx, p, "until", 3, a.Until); err != nil {
		return err
	}
	if err := writeI32Field(ctx, p, "limit", 4, a.Limit); err != nil {
		return err
	}
	if err := writeI32Field(ctx, p, "offset", 5, a.Offset); err != nil {
		return err
	}
	if err := p.WriteFieldStop(ctx); err != nil {
		return err
	}
	return p.WriteStructEnd(ctx)
}

func (a *getIdentifiersArgs) Read(ctx context.Context, p thrift.TProtocol) error {
	return thrift.NewTProtocolException(errors.New("get_article_identifiers_args is write-only"))
}

// stringResult reads a thrift result struct whose success field (id 0) is a
// string.
type stringResult struct {
	Success *string
}

func (r *stringResult) Write(ctx context.Context, p thrift.TProtocol) error {
	return thrift.NewTProtocolException(errors.New("result structs are read-only"))
}

func (r *stringResult) Read(ctx context.Context, p thrift.TProtocol) error {
	if _, err := p.ReadStructBegin(ctx); err != nil {
		return err
	}
	for {
		_, fieldType, fieldID, err := p.ReadFieldBegin(ctx)
		if err != nil {
			return err
		}
		if fieldType == thrift.STOP {
			break
		}

		if fieldID == 0 && fieldType == thrift.STRING {
			value, err := p.ReadString(ctx)
			if err != nil {
				return err
			}
			r.Success = &value
		} else if err := p.Skip(ctx, fieldType); err != nil {
			return err
		}

		if err := p.ReadFieldEnd(ctx); err != nil {
			return err
		}
	}
	return p.ReadStructEnd(ctx)
}

func writeStringField(ctx context.Context, p thrift.TProtocol, name string, id int16, value string) error {
	if err := p.WriteFieldBegin(ctx, name, thrift.STRING, id); err != nil {
		return err
	}
	if err := p.WriteString(ctx, value); err != nil {
		return err
	}
	return p.WriteFieldEnd(ctx)
}

func writeI32Field(ctx context.Context, p thrift.TProtocol, name string, id int16, value int32) error {
	if err := p.WriteFieldBegin(ctx, name, thrift.I32, id); err != nil {
		return err
	}
	if err := p.WriteI32(ctx, value); err != nil {
		return err
	}
	return p.WriteFieldEnd(ctx)
}
