package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"plant-rover/internal/mqtt/mqtttest"
)

func ptr(v float64) *float64 { return &v }

func report() Report {
	return Report{
		Plant:        2,
		Species:      "basil",
		Moisture:     41.5,
		WaterContent: ptr(63.2),
		WaterNeeded:  ptr(30.88),
		Temperature:  30,
		Humidity:     50,
		Time:         time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC),
	}
}

const blynkURL = `=~^https://blynk\.cloud/external/api/update`

func TestBlynkPublishesEveryPin(t *testing.T) {
	httpmock.Activate()
	t.Cleanup(httpmock.DeactivateAndReset)

	var queries []string
	httpmock.RegisterResponder("GET", blynkURL, func(req *http.Request) (*http.Response, error) {
		queries = append(queries, req.URL.RawQuery)
		return httpmock.NewStringResponse(http.StatusOK, ""), nil
	})

	b, err := NewBlynk(BlynkConfig{Token: "tok"}, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, b.Publish(context.Background(), report()))

	sort.Strings(queries)
	assert.Equal(t, []string{
		"token=tok&v0=41.50",
		"token=tok&v1=basil",
		"token=tok&v2=63.20",
		"token=tok&v3=30.88",
	}, queries)
}

func TestBlynkSkipsUnknownValues(t *testing.T) {
	httpmock.Activate()
	t.Cleanup(httpmock.DeactivateAndReset)
	httpmock.RegisterResponder("GET", blynkURL, httpmock.NewStringResponder(http.StatusOK, ""))

	b, err := NewBlynk(BlynkConfig{Token: "tok"}, nil)
	require.NoError(t, err)

	r := report()
	r.Species = "Unknown"
	r.WaterContent = nil
	r.WaterNeeded = nil
	require.NoError(t, b.Publish(context.Background(), r))

	assert.Equal(t, 2, httpmock.GetTotalCallCount())
}

func TestBlynkKeepsGoingAfterFailure(t *testing.T) {
	httpmock.Activate()
	t.Cleanup(httpmock.DeactivateAndReset)

	httpmock.RegisterResponder("GET", blynkURL, func(req *http.Request) (*http.Response, error) {
		if req.URL.Query().Has("v1") {
			return httpmock.NewStringResponse(http.StatusBadRequest, `{"error":"invalid pin"}`), nil
		}
		return httpmock.NewStringResponse(http.StatusOK, ""), nil
	})

	b, err := NewBlynk(BlynkConfig{Token: "tok"}, nil)
	require.NoError(t, err)

	err = b.Publish(context.Background(), report())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "v1")
	assert.Equal(t, 4, httpmock.GetTotalCallCount())
}

func TestNewBlynkNeedsToken(t *testing.T) {
	_, err := NewBlynk(BlynkConfig{}, nil)
	require.Error(t, err)
}

func TestMQTTPublisher(t *testing.T) {
	client := mqtttest.NewClient()
	p := NewMQTTPublisher(client, "rover/report", 1)

	require.NoError(t, p.Publish(context.Background(), report()))

	msgs := client.Published()
	require.Len(t, msgs, 1)
	assert.Equal(t, "rover/report", msgs[0].Topic)
	assert.Equal(t, byte(1), msgs[0].QoS)

	var got Report
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &got))
	assert.Equal(t, report(), got)

	client.PublishErr = errors.New("not connected")
	require.Error(t, p.Publish(context.Background(), report()))
}

type recorder struct {
	got []Report
	err error
}

func (r *recorder) Publish(_ context.Context, rep Report) error {
	r.got = append(r.got, rep)
	return r.err
}

func TestMultiFansOut(t *testing.T) {
	first := &recorder{err: errors.New("dashboard down")}
	second := &recorder{}

	err := Multi{first, second, Nop{}}.Publish(context.Background(), report())
	require.Error(t, err)
	assert.ErrorIs(t, err, first.err)
	assert.Len(t, first.got, 1)
	assert.Len(t, second.got, 1)

	require.NoError(t, Multi{}.Publish(context.Background(), report()))
}
