package routing

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vietddude/routefleet/internal/core/domain"
)

type kindedErr struct{ kind domain.ErrorKind }

func (e kindedErr) Error() string { return "kinded " + string(e.kind) }
func (e kindedErr) ErrorKind() domain.ErrorKind { return e.kind }

func TestClassifyError(t *testing.T) {
	dnsTimeout := &net.DNSError{Err: "i/o timeout", Name: "api.example.com", IsTimeout: true}

	tests := []struct {
		name   string
		err    error
		expect domain.ErrorKind
	}{
		{"tagged rate limit", domain.Errorf(domain.KindRateLimited, "429"), domain.KindRateLimited},
		{"wrapped tag", fmt.Errorf("load: %w", domain.Errorf(domain.KindUnavailable, "503")), domain.KindUnavailable},
		{"kinded capability", kindedErr{domain.KindEndpointMissing}, domain.KindEndpointMissing},
		{"unknown kind tag", kindedErr{"weird"}, domain.KindUnclassified},
		{"unknown classified kind", &domain.ClassifiedError{Kind: "weird"}, domain.KindUnclassified},
		{"deadline", context.DeadlineExceeded, domain.KindTimeout},
		{"wrapped deadline", fmt.Errorf("get: %w", os.ErrDeadlineExceeded), domain.KindTimeout},
		{"net timeout", dnsTimeout, domain.KindTimeout},
		{"plain error", errors.New("something odd"), domain.KindUnclassified},
		{"canceled", context.Canceled, domain.KindUnclassified},
		{"nil", nil, domain.KindUnclassified},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyError(tt.err)
			assert.Equal(t, tt.expect, got.Kind)
			assert.Equal(t, tt.expect.Retryable(), got.Retryable())
		})
	}
}

func TestClassifyError_PreservesOriginal(t *testing.T) {
	orig := errors.New("unexpected payload")
	got := ClassifyError(fmt.Errorf("decode: %w", orig))

	assert.Equal(t, domain.KindUnclassified, got.Kind)
	assert.ErrorIs(t, got, orig)
	assert.Contains(t, got.Message, "unexpected payload")
}
