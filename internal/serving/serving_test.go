package serving

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"carprep/internal/dataerr"
	"carprep/internal/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vocab() schema.Vocabulary {
	return schema.Vocabulary{
		Fields: []schema.FieldVocabulary{
			schema.NewFieldVocabulary("make", []string{"audi", "bmw", "ford", "vw"}),
			schema.NewFieldVocabulary("transmission", []string{"Automatic", "Manual", "Other", "Semi-Auto"}),
			schema.NewFieldVocabulary("fueltype", []string{"Diesel", "Electric", "Hybrid", "Petrol"}),
		},
		Pruned: []string{"transmission_Other", "fueltype_Electric"},
	}
}

// A Fiesta listing as the prediction client sends it.
const fordPayload = `{
  "year": 2020.0, "mileage": 15944.0, "enginesize": 1.0, "tax": 150.0, "mpg": 57.7,
  "make_bmw": false, "make_cclass": false, "make_ford": true, "make_vw": false,
  "transmission_Manual": false, "transmission_Semi-Auto": true,
  "fueltype_Hybrid": false, "fueltype_Petrol": true
}`

func TestDecode_FeatureOrder(t *testing.T) {
	t.Parallel()

	v := vocab()
	got, err := Decoder{Vocab: v}.Decode([]byte(fordPayload))
	require.NoError(t, err)

	want := map[string]float64{
		"year": 2020, "mileage": 15944, "enginesize": 1, "tax": 150, "mpg": 57.7,
		"make_ford": 1, "transmission_Semi-Auto": 1, "fueltype_Petrol": 1,
	}
	cols := v.FeatureColumns()
	require.Len(t, got, len(cols))
	for i, c := range cols {
		assert.Equal(t, want[c], got[i], c)
	}
}

func TestDecode_Rules(t *testing.T) {
	t.Parallel()

	const base = `"year": 2019, "mileage": 100, "enginesize": 1.4, "tax": 145, "mpg": 50`
	tests := []struct {
		name      string
		body      string
		wantField string
	}{
		{"baseline via absence", `{` + base + `}`, ""},
		{"numeric indicator", `{` + base + `, "make_vw": 1, "fueltype_Hybrid": 0}`, ""},
		{"price ignored", `{` + base + `, "price": 9000}`, ""},
		{"unknown category false", `{` + base + `, "make_tesla": false}`, ""},
		{"pruned category true", `{` + base + `, "fueltype_Electric": true}`, ""},
		{"baseline category true", `{` + base + `, "make_audi": true}`, ""},
		{"missing numeric", `{"year": 2019, "mileage": 100, "enginesize": 1.4, "tax": 145}`, "mpg"},
		{"string numeric", `{"year": "2019", "mileage": 100, "enginesize": 1.4, "tax": 145, "mpg": 50}`, "year"},
		{"unknown category true", `{` + base + `, "make_tesla": true}`, "make"},
		{"two active", `{` + base + `, "make_vw": true, "make_bmw": true}`, "make"},
		{"baseline plus other", `{` + base + `, "make_audi": true, "make_vw": true}`, "make"},
		{"unknown field", `{` + base + `, "colour": "red"}`, "colour"},
		{"bad indicator value", `{` + base + `, "make_vw": "yes"}`, "make_vw"},
		{"indicator out of range", `{` + base + `, "make_vw": 2}`, "make_vw"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := Decoder{Vocab: vocab()}.Decode([]byte(tc.body))
			if tc.wantField == "" {
				assert.NoError(t, err)
				return
			}
			var drift *dataerr.SchemaDriftError
			require.True(t, errors.As(err, &drift), "err = %v", err)
			assert.Equal(t, tc.wantField, drift.Field)
		})
	}
}

func TestDecode_NotAnObject(t *testing.T) {
	t.Parallel()
	for _, body := range []string{``, `null`, `[1,2]`, `{"year":`} {
		_, err := Decoder{Vocab: vocab()}.Decode([]byte(body))
		assert.Error(t, err, body)
	}
}

func TestService_PredictCarPrice(t *testing.T) {
	t.Parallel()

	var gotFeatures []float64
	svc := Service{
		Decoder: Decoder{Vocab: vocab()},
		Model: PredictorFunc(func(_ context.Context, f []float64) (float64, error) {
			gotFeatures = f
			return 14259.82, nil
		}),
		Version: "v1",
	}

	resp, err := svc.PredictCarPrice(context.Background(), []byte(fordPayload))
	require.NoError(t, err)
	assert.Equal(t, Response{Model: ModelName, Version: "v1", Prediction: Prediction{CarPrice: 14259.82}}, resp)
	assert.Len(t, gotFeatures, len(vocab().FeatureColumns()))

	b, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"model":"car_price_prediction_model","version":"v1","prediction":{"car_price":14259.82}}`, string(b))
}

func TestService_Errors(t *testing.T) {
	t.Parallel()

	boom := errors.New("model unavailable")
	svc := Service{
		Decoder: Decoder{Vocab: vocab()},
		Model: PredictorFunc(func(context.Context, []float64) (float64, error) {
			return 0, boom
		}),
	}
	_, err := svc.PredictCarPrice(context.Background(), []byte(fordPayload))
	assert.ErrorIs(t, err, boom)

	_, err = Service{Decoder: Decoder{Vocab: vocab()}}.PredictCarPrice(context.Background(), []byte(fordPayload))
	assert.Error(t, err)

	_, err = svc.PredictCarPrice(context.Background(), []byte(`{"colour":"red"}`))
	var drift *dataerr.SchemaDriftError
	assert.ErrorAs(t, err, &drift)
}
