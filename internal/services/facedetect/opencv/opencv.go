// Package opencv provides face detectors running inside the process on
// OpenCV: the YuNet CNN through FaceDetectorYN and Haar cascades.
package opencv

import (
	"fmt"
	"image"
	"os"
	"os/exec"

	"gocv.io/x/gocv"

	"facelive-go/internal/config"
	"facelive-go/internal/models"
	"facelive-go/internal/services/facedetect"
)

// Register installs the OpenCV constructors on reg
func Register(reg *facedetect.Registry) {
	reg.Register(config.KindYuNet, NewYuNet)
	reg.Register(config.KindHaar, NewHaar)
}

// Probe checks that the device behind a GPU backend is present
func Probe(backend string) error {
	switch backend {
	case facedetect.BackendCUDA, facedetect.BackendCUDAFP16:
		if err := exec.Command("nvidia-smi", "-L").Run(); err != nil {
			return fmt.Errorf("no NVIDIA GPU found: %w", err)
		}
	}
	return nil
}

func backendTarget(backend string) (gocv.NetBackendType, gocv.NetTargetType) {
	switch backend {
	case facedetect.BackendCUDA:
		return gocv.NetBackendCUDA, gocv.NetTargetCUDA
	case facedetect.BackendCUDAFP16:
		return gocv.NetBackendCUDA, gocv.NetTargetCUDAFP16
	case facedetect.BackendOpenCL:
		return gocv.NetBackendOpenCV, gocv.NetTargetFP32
	default:
		return gocv.NetBackendDefault, gocv.NetTargetCPU
	}
}

func requireFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	return nil
}

// frameToMat converts a frame to a BGR Mat, downscaling it so its width
// does not exceed maxWidth. It returns the factor that maps Mat
// coordinates back to frame coordinates.
func frameToMat(frame models.Frame, maxWidth int) (gocv.Mat, float64, error) {
	mat, err := gocv.ImageToMatRGB(frame.Image)
	if err != nil {
		return gocv.Mat{}, 1, fmt.Errorf("convert frame: %w", err)
	}
	if maxWidth <= 0 || mat.Cols() <= maxWidth {
		return mat, 1, nil
	}

	scale := float64(maxWidth) / float64(mat.Cols())
	resized := gocv.NewMat()
	gocv.Resize(mat, &resized, image.Pt(maxWidth, int(float64(mat.Rows())*scale)), 0, 0, gocv.InterpolationLinear)
	mat.Close()
	return resized, 1 / scale, nil
}
