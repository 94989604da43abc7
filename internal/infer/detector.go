package infer

import (
	"context"
	"errors"
	"fmt"

	"github.com/Trendyol/go-triton-client/base"
	tritonGrpc "github.com/Trendyol/go-triton-client/client/grpc"
)

// Frame is a decoded BGR frame, 3 bytes per pixel, row major.
type Frame struct {
	Data []byte
	Rows int
	Cols int
}

// Detection is a hit in normalized, center anchored coordinates.
type Detection struct {
	X, Y, W, H float64
	Confidence float64
	ClassId    int
}

type Detector interface {
	Detect(ctx context.Context, frame *Frame) ([]Detection, error)
}

// TritonDetector runs a detection model served by Triton. The model takes a
// FRAME uint8 tensor [rows, cols, 3] and returns DETECTIONS [N, 6] holding
// x1, y1, x2, y2, confidence, class_id in pixels.
type TritonDetector struct {
	client    base.Client
	modelName string
}

func NewTritonClient(addr string) (base.Client, error) {
	return tritonGrpc.NewClient(
		addr,
		false, // verbose logging
		30,    // connection timeout in seconds
		30,    // network timeout in seconds
		false, // use SSL
		true,  // insecure connection
		nil,   // existing gRPC connection
		nil,   // logger
	)
}

func NewTritonDetector(client base.Client, modelName string) *TritonDetector {
	return &TritonDetector{client: client, modelName: modelName}
}

// Ready checks that the server and the model can serve requests.
func (d *TritonDetector) Ready(ctx context.Context) error {
	if isLive, err := d.client.IsServerLive(ctx, nil); err != nil {
		return err
	} else if !isLive {
		return errors.New("triton server is not live")
	}

	if isReady, err := d.client.IsServerReady(ctx, nil); err != nil {
		return err
	} else if !isReady {
		return errors.New("triton server is not ready")
	}

	if isReady, err := d.client.IsModelReady(ctx, d.modelName, "1", nil); err != nil {
		return err
	} else if !isReady {
		return fmt.Errorf("triton model %s is not ready", d.modelName)
	}
	return nil
}

func (d *TritonDetector) Detect(ctx context.Context, frame *Frame) ([]Detection, error) {
	frameInput := tritonGrpc.NewInferInput("FRAME", "BYTES", []int64{int64(frame.Rows), int64(frame.Cols), 3}, nil)
	if err := frameInput.SetData(frame.Data, true); err != nil {
		return nil, fmt.Errorf("failed to set FRAME input data: %v", err)
	}
	frameInput.SetDatatype("UINT8")

	outputs := []base.InferOutput{
		tritonGrpc.NewInferOutput("DETECTIONS", map[string]any{"binary_data": false}),
	}

	response, err := d.client.Infer(
		ctx,
		d.modelName,
		"1",
		[]base.InferInput{frameInput},
		outputs,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("inference failed: %v", err)
	}

	detections, err := response.AsFloat32Slice("DETECTIONS")
	if err != nil {
		return nil, fmt.Errorf("failed to get detection data: %v", err)
	}
	return NormalizeDetections(detections, frame.Cols, frame.Rows), nil
}

func clamp01(v float64) float64 {
	return min(max(v, 0), 1)
}

// NormalizeDetections converts [N, 6] pixel corner boxes into normalized
// center boxes clipped to the frame.
func NormalizeDetections(raw []float32, width, height int) []Detection {
	if width <= 0 || height <= 0 {
		return nil
	}
	fw, fh := float64(width), float64(height)
	detections := make([]Detection, 0, len(raw)/6)
	for i := 0; i+5 < len(raw); i += 6 {
		x1 := clamp01(float64(raw[i]) / fw)
		y1 := clamp01(float64(raw[i+1]) / fh)
		x2 := clamp01(float64(raw[i+2]) / fw)
		y2 := clamp01(float64(raw[i+3]) / fh)
		if x2 <= x1 || y2 <= y1 {
			continue
		}
		detections = append(detections, Detection{
			X:          (x1 + x2) / 2,
			Y:          (y1 + y2) / 2,
			W:          x2 - x1,
			H:          y2 - y1,
			Confidence: float64(raw[i+4]),
			ClassId:    int(raw[i+5]),
		})
	}
	return detections
}
