package loader

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	reflectionpb "google.golang.org/grpc/reflection/grpc_reflection_v1"
	"google.golang.org/grpc/status"

	"github.com/vietddude/routefleet/internal/core/domain"
)

// GRPCConfig holds settings for the gRPC loader.
type GRPCConfig struct {
	TargetTemplate string `yaml:"target_template"` // e.g. {source}.api.example.com:443
	TLS            bool   `yaml:"tls"`
}

// GRPCLoader lists a source's services through gRPC server reflection.
//
// The direct route dials the source target. Any other route is a gateway
// address: the loader dials the gateway and sets the :authority to the
// source, so the gateway can forward the call.
type GRPCLoader struct {
	cfg     GRPCConfig
	timeout time.Duration
	opts    []grpc.DialOption
}

// NewGRPCLoader creates a gRPC loader. extra dial options are appended to the defaults.
func NewGRPCLoader(cfg GRPCConfig, timeout time.Duration, extra ...grpc.DialOption) (*GRPCLoader, error) {
	if cfg.TargetTemplate == "" {
		return nil, errors.New("grpc loader: target_template is required")
	}

	var opts []grpc.DialOption
	if cfg.TLS {
		opts = append(opts, grpc.WithTransportCredentials(credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})))
	} else {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}
	opts = append(opts, extra...)

	return &GRPCLoader{cfg: cfg, timeout: timeout, opts: opts}, nil
}

// Load dials the source (or a gateway route) and lists its services.
func (l *GRPCLoader) Load(ctx context.Context, id domain.SourceID, route domain.Route) (*domain.Payload, error) {
	target := expand(l.cfg.TargetTemplate, id)
	authority := authorityOf(target)

	dialTarget := target
	opts := l.opts
	if !route.IsDirect() {
		dialTarget = string(route)
		opts = append(append([]grpc.DialOption{}, l.opts...), grpc.WithAuthority(authority))
	}

	conn, err := grpc.NewClient(dialTarget, opts...)
	if err != nil {
		return nil, domain.NewError(domain.KindUnclassified, fmt.Errorf("dial %s: %w", dialTarget, err))
	}
	defer conn.Close()

	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	stream, err := reflectionpb.NewServerReflectionClient(conn).ServerReflectionInfo(ctx)
	if err != nil {
		return nil, ClassifyStatus(err)
	}

	err = stream.Send(&reflectionpb.ServerReflectionRequest{
		Host:           authority,
		MessageRequest: &reflectionpb.ServerReflectionRequest_ListServices{ListServices: "*"},
	})
	// io.EOF means the server closed the stream; the real status comes from Recv.
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, ClassifyStatus(err)
	}

	resp, err := stream.Recv()
	if err != nil {
		return nil, ClassifyStatus(err)
	}
	_ = stream.CloseSend()

	if e := resp.GetErrorResponse(); e != nil {
		return nil, ClassifyStatus(status.Error(codes.Code(e.GetErrorCode()), e.GetErrorMessage()))
	}

	services := resp.GetListServicesResponse().GetService()
	items := make([]string, 0, len(services))
	for _, s := range services {
		items = append(items, s.GetName())
	}
	sort.Strings(items)

	return &domain.Payload{Items: items}, nil
}

// ClassifyStatus maps a gRPC status error to a kind.
// Quota or retry details mark throttling whatever the code says.
func ClassifyStatus(err error) *domain.ClassifiedError {
	st, ok := status.FromError(err)
	if !ok {
		if errors.Is(err, context.DeadlineExceeded) {
			return domain.NewError(domain.KindTimeout, err)
		}
		return domain.NewError(domain.KindUnclassified, err)
	}

	for _, d := range st.Details() {
		switch d.(type) {
		case *errdetails.QuotaFailure, *errdetails.RetryInfo:
			return domain.NewError(domain.KindRateLimited, err)
		}
	}

	var kind domain.ErrorKind
	switch st.Code() {
	case codes.ResourceExhausted:
		kind = domain.KindRateLimited
	case codes.DeadlineExceeded:
		kind = domain.KindTimeout
	case codes.Unauthenticated, codes.PermissionDenied:
		kind = domain.KindUnauthenticated
	case codes.Unavailable:
		kind = domain.KindUnavailable
	case codes.Unimplemented, codes.NotFound:
		kind = domain.KindEndpointMissing
	default:
		kind = domain.KindUnclassified
	}
	return domain.NewError(kind, err)
}

// authorityOf strips a resolver scheme such as "dns:///" from a target.
func authorityOf(target string) string {
	if i := strings.Index(target, ":///"); i >= 0 {
		return target[i+4:]
	}
	return target
}
