package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/guided-app/weatherd/internal/calendar"
	"github.com/guided-app/weatherd/internal/extract"
	"github.com/guided-app/weatherd/internal/flow"
	"github.com/guided-app/weatherd/internal/location"
	"github.com/guided-app/weatherd/internal/phone"
	"github.com/guided-app/weatherd/internal/schema"
	"github.com/guided-app/weatherd/internal/store"
	"github.com/guided-app/weatherd/internal/tokens"
	"github.com/guided-app/weatherd/internal/weather"
)

const sessionHeader = "X-Session-Id"

// Forecaster fetches weather data for a validated query.
type Forecaster interface {
	Fetch(ctx context.Context, q schema.WeatherQuery) (*weather.Response, error)
}

// GeoResolver resolves a client IP to a coarse location.
type GeoResolver interface {
	Resolve(ctx context.Context, ip string) (location.Data, error)
}

// CredentialSource resolves a session's calendar credentials.
type CredentialSource interface {
	Get(ctx context.Context, sessionID string) (*tokens.Credentials, error)
}

// Deps are the collaborators of the HTTP server.
type Deps struct {
	LLM         extract.Completer
	Weather     Forecaster
	Geo         GeoResolver
	Users       store.UserRepo
	Credentials CredentialSource
	Calendars   calendar.Factory
}

// Server is the HTTP surface of the assistant.
type Server struct {
	router      *chi.Mux
	llm         extract.Completer
	humanizer   *flow.Humanizer
	weather     Forecaster
	geo         GeoResolver
	users       store.UserRepo
	credentials CredentialSource
	calendars   calendar.Factory
	now         func() time.Time
}

// NewServer builds the router and handlers.
func NewServer(d Deps) *Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:      router,
		llm:         d.LLM,
		humanizer:   &flow.Humanizer{Client: d.LLM},
		weather:     d.Weather,
		geo:         d.Geo,
		users:       d.Users,
		credentials: d.Credentials,
		calendars:   d.Calendars,
		now:         time.Now,
	}

	router.Get("/health", s.handleHealth)
	router.Get("/api/weather", s.handleWeather)
	router.Post("/api/sms/register", s.handleSMSRegister)
	router.Delete("/api/sms/unregister", s.handleSMSUnregister)
	router.Get("/api/sms/status", s.handleSMSStatus)

	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

type weatherResponse struct {
	Location       string              `json:"location"`
	Forecast       string              `json:"forecast"`
	Query          schema.WeatherQuery `json:"query"`
	CalendarResult *calendarSummary    `json:"calendarResult,omitempty"`
}

type calendarSummary struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// handleWeather runs the full request pipeline: resolve location, synthesize
// the weather query, fetch weather, optionally execute a calendar action,
// then humanize. Calendar augmentation is best-effort; its failures are
// logged and the weather answer still goes out.
func (s *Server) handleWeather(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := r.URL.Query().Get("query")
	if query == "" {
		writeError(w, http.StatusBadRequest, "query parameter is required")
		return
	}

	ip := r.URL.Query().Get("clientIP")
	if ip == "" {
		ip = clientIP(r)
	}
	loc, err := s.geo.Resolve(ctx, ip)
	if err != nil {
		slog.Error("location resolution failed", "ip", ip, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to resolve location")
		return
	}

	today, err := location.TodayInZone(loc.Timezone)
	if err != nil {
		today = s.now().UTC().Format("2006-01-02")
	}

	wq, err := flow.SynthesizeWeatherQuery(ctx, s.llm, query, today, loc.Name())
	if err != nil {
		slog.Error("weather query synthesis failed", "query", query, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to understand weather query")
		return
	}

	forecast, err := s.weather.Fetch(ctx, wq)
	if err != nil {
		slog.Error("weather fetch failed", "location", wq.Location, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch weather data")
		return
	}

	var calRes *calendar.Result
	if sessionID := r.Header.Get(sessionHeader); sessionID != "" {
		calRes = s.tryCalendarAction(ctx, sessionID, query, forecast)
	}
	var calForHumanizer any
	if calRes != nil {
		calForHumanizer = calRes
	}

	answer, err := s.humanizer.Humanize(ctx, forecast, query, calForHumanizer)
	if err != nil {
		slog.Error("weather response generation failed", "query", query, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to generate weather response")
		return
	}

	resp := weatherResponse{Location: loc.Name(), Forecast: answer, Query: wq}
	if calRes != nil {
		resp.CalendarResult = &calendarSummary{Success: calRes.Success, Message: calRes.Message}
	}
	writeJSONResponse(w, http.StatusOK, resp)
}

// tryCalendarAction performs the optional calendar leg of the pipeline.
// Any failure returns nil; the weather answer must never depend on it.
func (s *Server) tryCalendarAction(ctx context.Context, sessionID, query string, forecast *weather.Response) *calendar.Result {
	creds, err := s.credentials.Get(ctx, sessionID)
	if err != nil {
		slog.Error("credential lookup failed", "sessionID", sessionID, "error", err)
		return nil
	}
	if creds == nil {
		slog.Debug("no calendar credentials for session, skipping calendar action", "sessionID", sessionID)
		return nil
	}

	weatherInfo := ""
	if forecast != nil {
		weatherInfo = forecast.Current.Condition.Text
	}
	action, err := flow.SynthesizeCalendarAction(ctx, s.llm, query, weatherInfo, s.now())
	if err != nil {
		slog.Error("calendar action synthesis failed", "query", query, "error", err)
		return nil
	}
	if action == nil {
		return nil
	}

	api, err := s.calendars(ctx, creds.AccessToken)
	if err != nil {
		slog.Error("calendar client creation failed", "sessionID", sessionID, "error", err)
		return nil
	}
	res, err := calendar.NewService(api).Execute(ctx, *action)
	if err != nil {
		slog.Error("calendar action execution failed", "action", action.Action, "error", err)
		return nil
	}
	return res
}

type registerRequest struct {
	PhoneNumber     string `json:"phoneNumber"`
	DefaultLocation string `json:"defaultLocation,omitempty"`
}

type registrationStatus struct {
	Registered           bool   `json:"registered"`
	PhoneNumber          string `json:"phoneNumber,omitempty"`
	NotificationsEnabled bool   `json:"notificationsEnabled,omitempty"`
}

func (s *Server) handleSMSRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := r.Header.Get(sessionHeader)
	if sessionID == "" {
		writeError(w, http.StatusUnauthorized, "session header is required")
		return
	}

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	formatted, err := phone.Format(req.PhoneNumber)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid phone number")
		return
	}

	user := store.UserProfile{
		SessionID:            sessionID,
		SMSPhoneNumber:       formatted,
		Timezone:             "UTC",
		DefaultLocation:      req.DefaultLocation,
		NotificationsEnabled: true,
		AdvanceNoticeMinutes: int(store.SendWindow / time.Minute),
	}
	if existing, err := s.users.GetUser(ctx, sessionID); err == nil && existing != nil {
		user.Timezone = existing.Timezone
		user.ResolvedLocation = existing.ResolvedLocation
		if user.DefaultLocation == "" {
			user.DefaultLocation = existing.DefaultLocation
		}
	}

	// Best-effort: seed timezone and location from the caller's IP.
	if loc, err := s.geo.Resolve(ctx, clientIP(r)); err == nil {
		user.Timezone = loc.Timezone
		user.ResolvedLocation = loc.Name()
	} else {
		slog.Debug("registration location resolution failed", "error", err)
	}

	if err := s.users.UpsertUser(ctx, user); err != nil {
		slog.Error("user registration failed", "sessionID", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to register")
		return
	}
	writeJSONResponse(w, http.StatusOK, registrationStatus{
		Registered:           true,
		PhoneNumber:          formatted,
		NotificationsEnabled: true,
	})
}

func (s *Server) handleSMSUnregister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := r.Header.Get(sessionHeader)
	if sessionID == "" {
		writeError(w, http.StatusUnauthorized, "session header is required")
		return
	}
	user, err := s.users.GetUser(ctx, sessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to unregister")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "not registered")
		return
	}
	if err := s.users.DeleteUser(ctx, sessionID); err != nil {
		slog.Error("user unregistration failed", "sessionID", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to unregister")
		return
	}
	writeJSONResponse(w, http.StatusOK, registrationStatus{Registered: false})
}

func (s *Server) handleSMSStatus(w http.ResponseWriter, r *http.Request) {
	sessionID := r.Header.Get(sessionHeader)
	if sessionID == "" {
		writeError(w, http.StatusUnauthorized, "session header is required")
		return
	}
	user, err := s.users.GetUser(r.Context(), sessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load status")
		return
	}
	if user == nil {
		writeJSONResponse(w, http.StatusOK, registrationStatus{Registered: false})
		return
	}
	writeJSONResponse(w, http.StatusOK, registrationStatus{
		Registered:           true,
		PhoneNumber:          user.SMSPhoneNumber,
		NotificationsEnabled: user.NotificationsEnabled,
	})
}

// clientIP returns the caller's IP; RealIP middleware has already folded
// X-Forwarded-For into RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
