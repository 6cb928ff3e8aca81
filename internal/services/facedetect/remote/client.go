// Package remote runs face estimation on a detection service over gRPC.
package remote

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image/jpeg"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/types/known/structpb"

	"facelive-go/internal/config"
	"facelive-go/internal/models"
	"facelive-go/internal/services/detector"
	"facelive-go/internal/services/facedetect"
)

const jpegQuality = 80

// Client is a detector backed by a remote FaceDetector service
type Client struct {
	endpoint string
	timeout  time.Duration
	maxFaces int

	mu     sync.Mutex
	conn   *grpc.ClientConn
	closed bool
}

// NewConstructor returns a facedetect.Constructor for remote models.
// Models without an endpoint in the catalog use defaultEndpoint.
func NewConstructor(defaultEndpoint string, timeout time.Duration, opts ...grpc.DialOption) facedetect.Constructor {
	return func(ctx context.Context, spec config.ModelSpec, _ facedetect.Settings, req detector.Request) (detector.Detector, error) {
		endpoint := spec.Endpoint
		if endpoint == "" {
			endpoint = defaultEndpoint
		}
		return Dial(ctx, endpoint, timeout, req.MaxFaces, opts...)
	}
}

// Dial connects to endpoint and checks that the service is serving
func Dial(ctx context.Context, endpoint string, timeout time.Duration, maxFaces int, opts ...grpc.DialOption) (*Client, error) {
	log.Info().Str("endpoint", endpoint).Msg("Connecting to remote face detector")

	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(endpoint, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to face detector: %w", err)
	}

	hctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	resp, err := grpc_health_v1.NewHealthClient(conn).Check(hctx, &grpc_health_v1.HealthCheckRequest{})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("face detector health check failed: %w", err)
	}
	if resp.GetStatus() != grpc_health_v1.HealthCheckResponse_SERVING {
		conn.Close()
		return nil, fmt.Errorf("face detector is %s", resp.GetStatus())
	}

	log.Info().Str("endpoint", endpoint).Msg("Successfully connected to remote face detector")
	return &Client{
		endpoint: endpoint,
		timeout:  timeout,
		maxFaces: maxFaces,
		conn:     conn,
	}, nil
}

func (c *Client) EstimateFaces(ctx context.Context, frame models.Frame, opts detector.EstimateOptions) ([]models.Face, error) {
	if frame.Empty() {
		return nil, nil
	}

	c.mu.Lock()
	conn, closed := c.conn, c.closed
	c.mu.Unlock()
	if closed {
		return nil, fmt.Errorf("%w: detector disposed", detector.ErrInference)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame.Image, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}

	req, err := structpb.NewStruct(map[string]any{
		"image":     base64.StdEncoding.EncodeToString(buf.Bytes()),
		"width":     frame.Width(),
		"height":    frame.Height(),
		"max_faces": c.maxFaces,
	})
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	cctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp := new(structpb.Struct)
	if err := conn.Invoke(cctx, estimateMethod, req, resp); err != nil {
		return nil, fmt.Errorf("estimate faces on %s: %w", c.endpoint, err)
	}

	faces, err := decodeFaces(resp)
	if err != nil {
		return nil, err
	}
	faces = facedetect.TopFaces(faces, c.maxFaces)
	if opts.FlipHorizontal {
		faces = facedetect.Mirror(faces, frame.Width())
	}
	return faces, nil
}

func decodeFaces(resp *structpb.Struct) ([]models.Face, error) {
	raw, err := json.Marshal(resp.AsMap())
	if err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	var body struct {
		Faces []models.Face `json:"faces"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return body.Faces, nil
}

func (c *Client) Dispose() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	log.Info().Str("endpoint", c.endpoint).Msg("Closing remote face detector connection")
	return c.conn.Close()
}
