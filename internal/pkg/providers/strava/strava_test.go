package strava

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/CalSync/app/models"
	"github.com/ManuelReschke/CalSync/internal/pkg/apperror"
)

func ptr(v float64) *float64 { return &v }

func TestActivity_RunEntry(t *testing.T) {
	a := &Activity{
		ID:                 9001,
		Type:               "Run",
		StartDate:          "2025-01-12T07:30:00Z",
		ElapsedTime:        1800,
		Distance:           5000,
		AverageSpeed:       2.7778,
		TotalElevationGain: ptr(42),
		AverageHeartrate:   ptr(151.3),
		activityURL:        "https://www.strava.com/activities",
	}
	require.True(t, a.Syncable())
	assert.Equal(t, "strava.run", a.PreferenceKey())

	entry, err := a.Entry()
	require.NoError(t, err)
	assert.Equal(t, "🏃‍♂️ Run: - 5.00km", entry.Summary)
	assert.Equal(t, 30*time.Minute, entry.End.Sub(entry.Start))
	assert.Equal(t, "Distance: 5.00 km\n"+
		"Pace: 6:00 min/km\n"+
		"Speed: 10.00 km/h\n"+
		"Elevation: 42 m\n\n"+
		"Average HR: 151.3\n"+
		"Max HR: —\n"+
		"Calories: —\n\n"+
		"https://www.strava.com/activities/9001", entry.Description)
}

func TestActivity_OtherTypes(t *testing.T) {
	workout := &Activity{Type: "Workout", StartDate: "2025-01-12T07:30:00Z", ElapsedTime: 600}
	entry, err := workout.Entry()
	require.NoError(t, err)
	assert.Equal(t, "Stretch", entry.Summary)
	assert.Empty(t, entry.Description)

	weights := &Activity{Type: "WeightTraining", StartDate: "2025-01-12T07:30:00Z", ElapsedTime: 600}
	entry, err = weights.Entry()
	require.NoError(t, err)
	assert.Equal(t, "Static Exercises", entry.Summary)
	assert.Equal(t, "strava.weighttraining", weights.PreferenceKey())

	ride := &Activity{Type: "Ride"}
	assert.False(t, ride.Syncable())
}

func TestPace(t *testing.T) {
	assert.Equal(t, "—", pace(0))
	assert.Equal(t, "5:00", pace(1000.0/300))
	assert.Equal(t, "5:00", pace(1000.0/299.7), "rounding up to a full minute carries over")
}

func TestSource_Parse(t *testing.T) {
	src := NewSource("hub-secret")
	event, err := src.Parse([]byte(`{"aspect_type":"create","event_time":1736667000,"object_id":1360128428,"object_type":"activity","owner_id":134815,"subscription_id":120475,"updates":{}}`), time.Now())
	require.NoError(t, err)
	assert.Equal(t, models.ProviderStrava, event.Provider)
	assert.Equal(t, "134815", event.OwnerID)
	assert.Equal(t, "1360128428", event.ObjectID)
	assert.Equal(t, "120475", event.SubscriptionID)
	require.NotNil(t, event.EventTime)
	assert.True(t, src.StableKey())

	_, err = src.Parse([]byte(`{"aspect_type":"create","object_type":"activity","owner_id":1}`), time.Now())
	var verr *apperror.ValidationError
	assert.ErrorAs(t, err, &verr)

	token, challenge := src.VerificationParams()
	assert.Equal(t, "hub.verify_token", token)
	assert.Equal(t, "hub.challenge", challenge)
	assert.Equal(t, map[string]string{"hub.challenge": "c"}, src.ChallengeResponse("c"))
}

func TestStrategy_FetchAndAccepts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/activities/77", r.URL.Path)
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"id":77,"type":"Ride","start_date":"2025-01-12T07:30:00Z","elapsed_time":60}`))
	}))
	defer srv.Close()

	s := NewStrategy(NewClient(srv.URL+"/api/v3", 0, srv.Client()), "https://www.strava.com/activities")
	assert.True(t, s.Accepts(&models.WebhookEvent{ObjectType: "activity", AspectType: "create"}))
	assert.False(t, s.Accepts(&models.WebhookEvent{ObjectType: "activity", AspectType: "update"}))
	assert.False(t, s.Accepts(&models.WebhookEvent{ObjectType: "athlete", AspectType: "update"}))
	require.NoError(t, s.Prepare(context.Background()))

	res, err := s.Fetch(context.Background(), &models.WebhookEvent{ObjectID: "77"}, "good")
	require.NoError(t, err)
	assert.False(t, res.Syncable())

	_, err = s.Fetch(context.Background(), &models.WebhookEvent{ObjectID: "77"}, "bad")
	assert.True(t, apperror.IsUnauthorized(err))
}
