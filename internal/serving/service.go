package serving

import (
	"context"
	"fmt"
)

// ModelName identifies the prediction model in responses.
const ModelName = "car_price_prediction_model"

// Predictor is an externally trained model.
type Predictor interface {
	Predict(ctx context.Context, features []float64) (float64, error)
}

// PredictorFunc adapts a function to a Predictor.
type PredictorFunc func(ctx context.Context, features []float64) (float64, error)

func (f PredictorFunc) Predict(ctx context.Context, features []float64) (float64, error) {
	return f(ctx, features)
}

// Prediction is the payload of a Response.
type Prediction struct {
	CarPrice float64 `json:"car_price"`
}

// Response is returned for every successful prediction.
type Response struct {
	Model      string     `json:"model"`
	Version    string     `json:"version"`
	Prediction Prediction `json:"prediction"`
}

// Service decodes a payload and asks the model for a price.
type Service struct {
	Decoder Decoder
	Model   Predictor
	Version string
}

// PredictCarPrice validates payload, runs the model and wraps its output.
func (s Service) PredictCarPrice(ctx context.Context, payload []byte) (Response, error) {
	features, err := s.Decoder.Decode(payload)
	if err != nil {
		return Response{}, err
	}
	if s.Model == nil {
		return Response{}, fmt.Errorf("serving: no model configured")
	}
	price, err := s.Model.Predict(ctx, features)
	if err != nil {
		return Response{}, fmt.Errorf("predict: %w", err)
	}
	return Response{
		Model:      ModelName,
		Version:    s.Version,
		Prediction: Prediction{CarPrice: price},
	}, nil
}
