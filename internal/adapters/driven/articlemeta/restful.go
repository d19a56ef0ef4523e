package articlemeta

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/time/rate"

	"github.com/scieloorg/doaj-exporter/internal/core/domain"
	"github.com/scieloorg/doaj-exporter/internal/core/ports/driven"
	"github.com/scieloorg/doaj-exporter/internal/logger"
)

// Default configuration values for the restful transport.
const (
	DefaultRestfulDomain = "articlemeta.scielo.org"

	// identifiersPageSize bounds one page of the identifiers listing.
	identifiersPageSize = 500
)

// Ensure RestfulClient implements the interface.
var _ driven.SourceClient = (*RestfulClient)(nil)

// RestfulClient queries the catalogue's HTTP API. Requests are throttled by
// a token bucket so full-collection runs do not hammer the service.
type RestfulClient struct {
	client  *http.Client
	baseURL string
	limiter *rate.Limiter
}

// NewRestfulClient creates a restful source client from the process
// settings. An empty domain selects the public catalogue endpoint.
func NewRestfulClient(settings domain.Settings) *RestfulClient {
	domainAddr := settings.Domain
	if domainAddr == "" {
		domainAddr = DefaultRestfulDomain
	}
	if !strings.Contains(domainAddr, "://") {
		domainAddr = "http://" + domainAddr
	}

	return &RestfulClient{
		client:  &http.Client{Timeout: settings.Timeout},
		baseURL: strings.TrimRight(domainAddr, "/"),
		limiter: rate.NewLimiter(rate.Limit(settings.RequestRate), 1),
	}
}

// Document fetches the full source record for one PID.
func (c *RestfulClient) Document(ctx context.Context, collection, pid string) (*domain.SourceDocument, error) {
	query := url.Values{}
	query.Set("code", pid)
	query.Set("collection", collection)
	query.Set("format", "json")

	body, err := c.get(ctx, c.baseURL+"/api/v1/article/?"+query.Encode())
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", pid, err)
	}
	return parseDocument(body)
}

// Identifiers streams the identifiers listing page by page. Each call
// issues a fresh query, so the sequence is restartable.
func (c *RestfulClient) Identifiers(ctx context.Context, filter driven.IdentifierFilter) (<-chan domain.Identifier, <-chan error) {
	ids := make(chan domain.Identifier)
	errs := make(chan error, 1)

	go func() {
		defer close(ids)
		defer close(errs)

		offset := 0
		for {
			page, err := c.identifiersPage(ctx, filter, offset)
			if err != nil {
				errs <- fmt.Errorf("listing identifiers at offset %d: %w", offset, err)
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

			offset += len(page.Objects)
			if page.Meta.Total > 0 && offset >= page.Meta.Total {
				return
			}
		}
	}()

	return ids, errs
}

// Close releases transport resources. The restful transport holds none.
func (c *RestfulClient) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

func (c *RestfulClient) identifiersPage(ctx context.Context, filter driven.IdentifierFilter, offset int) (*wireIdentifierPage, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(identifiersPageSize))
	query.Set("offset", strconv.Itoa(offset))
	if filter.Collection != "" {
		query.Set("collection", filter.Collection)
	}
	if filter.FromDate != nil {
		query.Set("from", filter.FromDate.Format("2006-01-02"))
	}
	if filter.UntilDate != nil {
		query.Set("until", filter.UntilDate.Format("2006-01-02"))
	}

	body, err := c.get(ctx, c.baseURL+"/api/v1/article/identifiers/?"+query.Encode())
	if err != nil {
		return nil, err
	}

	var page wireIdentifierPage
	if err := unmarshalPage(body, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// get issues one throttled GET and classifies transport failures.
func (c *RestfulClient) get(ctx context.Context, rawURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	logger.Debug("GET %s", rawURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", domain.ErrTransient, err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, domain.ErrNotFound
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: source returned status %d", domain.ErrTransient, resp.StatusCode)
	default:
		return nil, fmt.Errorf("source returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
}

// classifyTransportError folds network-level failures into the retryable
// error class. Context cancellation passes through untouched.
func classifyTransportError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", domain.ErrTransient, err)
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%w: %v", domain.ErrTransient, err)
	}
	return err
}
