package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
)

// ProgressFunc receives the uploaded fraction in [0, 1]. Values never decrease.
type ProgressFunc func(fraction float64)

// TransportError is a failed direct upload. Status is 0 for network failures.
type TransportError struct {
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("upload failed with HTTP %d: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("upload failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Uploader performs single-shot PUTs to presigned URLs. It never retries.
type Uploader struct {
	http *http.Client
}

// NewUploader builds an uploader. No timeout is imposed on the transfer.
func NewUploader(httpClient *http.Client) *Uploader {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Uploader{http: httpClient}
}

// Put streams size bytes from body to url, sending headers verbatim.
func (u *Uploader) Put(ctx context.Context, url string, headers map[string]string, body io.Reader, size int64, progress ProgressFunc) error {
	pr := &progressReader{r: body, total: size, report: progress}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, pr)
	if err != nil {
		return &TransportError{Err: err}
	}
	req.ContentLength = size
	for name, value := range headers {
		req.Header.Set(name, value)
	}

	resp, err := u.http.Do(req)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &TransportError{Status: resp.StatusCode, Err: fmt.Errorf("%s", snippet)}
	}
	pr.finish()
	return nil
}

type progressReader struct {
	r      io.Reader
	total  int64
	report ProgressFunc

	mu   sync.Mutex
	read int64
	last float64
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.mu.Lock()
		p.read += int64(n)
		p.emit(p.fraction())
		p.mu.Unlock()
	}
	return n, err
}

func (p *progressReader) fraction() float64 {
	if p.total <= 0 {
		return 0
	}
	f := float64(p.read) / float64(p.total)
	if f > 1 {
		f = 1
	}
	return f
}

// emit reports f only when it advances. Callers hold mu.
func (p *progressReader) emit(f float64) {
	if p.report == nil || f <= p.last {
		return
	}
	p.last = f
	p.report(f)
}

func (p *progressReader) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.emit(1)
}
