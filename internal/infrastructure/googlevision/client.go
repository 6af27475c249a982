// Package googlevision adapts the Cloud Vision API to the VisionDetector
// interface: label detection, object localization and web detection for one
// image file.
package googlevision

import (
	"context"
	"fmt"
	"os"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"google.golang.org/api/option"

	"github.com/snapfind/backend/internal/domain"
)

const maxLabelResults = 10

// Client wraps the Cloud Vision ImageAnnotatorClient
type Client struct {
	annotator *vision.ImageAnnotatorClient
}

// NewClient creates a Vision client. Credentials come from Application
// Default Credentials unless a service account file is given.
func NewClient(ctx context.Context, credentialsFile string) (*Client, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	annotator, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating vision client: %w", err)
	}

	return &Client{annotator: annotator}, nil
}

// Close releases the underlying gRPC connection
func (c *Client) Close() error {
	return c.annotator.Close()
}

// Detect runs the three detections against the image file. Any provider
// failure is returned as-is; the classifier treats it as fatal.
func (c *Client) Detect(ctx context.Context, imagePath string) (*domain.VisionDetections, error) {
	f, err := os.Open(imagePath)
	if err != nil {
		return nil, fmt.Errorf("opening image: %w", err)
	}
	defer f.Close()

	image, err := vision.NewImageFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}

	detections := &domain.VisionDetections{}

	labels, err := c.annotator.DetectLabels(ctx, image, nil, maxLabelResults)
	if err != nil {
		return nil, fmt.Errorf("label detection: %w", err)
	}
	for _, label := range labels {
		detections.Labels = append(detections.Labels, domain.DetectedEntity{
			Description: label.Description,
			Score:       float64(label.Score),
		})
	}

	objects, err := c.annotator.LocalizeObjects(ctx, image, nil)
	if err != nil {
		return nil, fmt.Errorf("object localization: %w", err)
	}
	for _, obj := range objects {
		detections.Objects = append(detections.Objects, domain.DetectedEntity{
			Description: obj.Name,
			Score:       float64(obj.Score),
		})
	}

	web, err := c.annotator.DetectWeb(ctx, image, nil)
	if err != nil {
		return nil, fmt.Errorf("web detection: %w", err)
	}
	if web != nil {
		for _, guess := range web.BestGuessLabels {
			detections.BestGuessLabels = append(detections.BestGuessLabels, guess.Label)
		}
		for _, entity := range web.WebEntities {
			detections.WebEntities = append(detections.WebEntities, domain.DetectedEntity{
				Description: entity.Description,
				Score:       float64(entity.Score),
			})
		}
	}

	return detections, nil
}
