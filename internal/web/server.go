// Package web serves the browser front end: Google sign-in, date range and
// calendar selection, and the resulting free times.
package web

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"

	"meetme/internal/agenda"
	"meetme/internal/schedule"
	"meetme/internal/session"
	"meetme/internal/timeparse"
)

//go:embed templates/index.html
var indexTemplate string

const (
	bodyLimit      = 1 << 20
	requestTimeout = 30 * time.Second
)

// OAuthFlow is the redirect-based authorization used to obtain a Google
// token for each browser session.
type OAuthFlow interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	Refresh(ctx context.Context, tok *oauth2.Token) (*oauth2.Token, error)
}

// ProviderFactory builds the calendar backend for one authorized user.
type ProviderFactory func(ctx context.Context, tok *oauth2.Token) (schedule.Provider, error)

type Options struct {
	Flow          OAuthFlow
	Providers     ProviderFactory
	Store         session.Store
	Location      *time.Location
	Hours         agenda.WakingHours
	Calendars     []string
	Secret        string
	SecureCookies bool
	SessionTTL    time.Duration
	Logger        *slog.Logger
	Now           func() time.Time
	Ready         func(context.Context) error
}

type Server struct {
	flow      OAuthFlow
	providers ProviderFactory
	store     session.Store
	loc       *time.Location
	hours     agenda.WakingHours
	calendars []string
	cookies   cookieSigner
	logger    *slog.Logger
	now       func() time.Time
	ready     func(context.Context) error
	tmpl      *template.Template
	mux       *http.ServeMux
}

func NewServer(opts Options) (*Server, error) {
	if opts.Flow == nil || opts.Providers == nil || opts.Store == nil {
		return nil, errors.New("web: flow, providers and store are required")
	}
	s := &Server{
		flow:      opts.Flow,
		providers: opts.Providers,
		store:     opts.Store,
		loc:       opts.Location,
		hours:     opts.Hours,
		calendars: opts.Calendars,
		logger:    opts.Logger,
		now:       opts.Now,
		ready:     opts.Ready,
		mux:       http.NewServeMux(),
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.hours == (agenda.WakingHours{}) {
		s.hours = agenda.DefaultWakingHours
	}
	if err := s.hours.Validate(); err != nil {
		return nil, err
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	if s.now == nil {
		s.now = time.Now
	}
	secret := opts.Secret
	if secret == "" {
		s.logger.Warn("no session secret configured, sessions will not survive a restart")
		secret = uuid.NewString()
	}
	ttl := opts.SessionTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	s.cookies = cookieSigner{secret: []byte(secret), secure: opts.SecureCookies, ttl: ttl}

	tmpl, err := template.New("index").Funcs(template.FuncMap{
		"fmtdate": agenda.FormatDate,
		"fmttime": agenda.FormatClock,
	}).Parse(indexTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}
	s.tmpl = tmpl
	s.registerRoutes()
	return s, nil
}

// Handler returns the routes wrapped in request id, access log, body limit,
// timeout and tracing middleware.
func (s *Server) Handler() http.Handler {
	h := Chain(s.mux,
		WithRequestID,
		WithAccessLog(s.logger),
		WithBodyLimit(bodyLimit),
		WithTimeout(requestTimeout),
	)
	return otelhttp.NewHandler(h, "meetme")
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("GET /index", s.handleIndex)
	s.mux.HandleFunc("GET /choose", s.handleChoose)
	s.mux.HandleFunc("GET /oauth2callback", s.handleOAuthCallback)
	s.mux.HandleFunc("POST /setrange", s.handleSetRange)
	s.mux.HandleFunc("POST /select_calendars", s.handleSelectCalendars)
	s.mux.HandleFunc("GET /api/free", s.handleAPIFree)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("GET /readyz", s.handleReady)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	sess := s.load(r)
	s.render(w, r, sess)
}

func (s *Server) handleChoose(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := s.load(r)
	tok, ok := s.token(ctx, sess)
	if !ok {
		s.redirect(w, r, sess, "/oauth2callback", http.StatusFound)
		return
	}
	cals, err := s.listCalendars(ctx, tok)
	if err != nil {
		s.log(ctx).Error("list calendars failed", "err", err)
		sess.Flash("Could not list calendars: " + err.Error())
	} else {
		sess.Calendars = cals
		if len(sess.SelectedCalendars()) == 0 {
			sess.Selected = schedule.DefaultSelection(cals, s.calendars)
		}
	}
	s.render(w, r, sess)
}

func (s *Server) listCalendars(ctx context.Context, tok *oauth2.Token) ([]schedule.Calendar, error) {
	provider, err := s.providers(ctx, tok)
	if err != nil {
		return nil, err
	}
	cals, err := provider.ListCalendars(ctx)
	if err != nil {
		return nil, err
	}
	return schedule.SortCalendars(cals), nil
}

func (s *Server) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := s.load(r)
	q := r.URL.Query()

	if reason := q.Get("error"); reason != "" {
		sess.OAuthState = ""
		sess.Flash("Authorization failed: " + reason)
		s.redirect(w, r, sess, "/index", http.StatusFound)
		return
	}

	code := q.Get("code")
	if code == "" {
		sess.OAuthState = uuid.NewString()
		s.redirect(w, r, sess, s.flow.AuthURL(sess.OAuthState), http.StatusFound)
		return
	}

	if sess.OAuthState == "" || q.Get("state") != sess.OAuthState {
		s.log(ctx).Warn("oauth state mismatch, dropping session")
		if err := s.store.Delete(ctx, sess.ID); err != nil {
			s.log(ctx).Error("session delete failed", "err", err)
		}
		s.cookies.clear(w)
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}
	sess.OAuthState = ""
	tok, err := s.flow.Exchange(ctx, code)
	if err != nil {
		s.log(ctx).Error("oauth exchange failed", "err", err)
		sess.Flash("Authorization failed, please try again.")
		s.redirect(w, r, sess, "/index", http.StatusFound)
		return
	}
	sess.Token = tok
	s.redirect(w, r, sess, "/choose", http.StatusFound)
}

func (s *Server) handleSetRange(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	sess := s.load(r)

	text := strings.TrimSpace(r.PostFormValue("daterange"))
	begin, end, err := timeparse.ParseFormRange(text, s.loc)
	if err != nil {
		sess.Flash(err.Error())
	} else {
		sess.SetRange(begin, end)
	}

	hours, err := parseHours(sess.Hours, r.PostFormValue("begin_time"), r.PostFormValue("end_time"))
	if err != nil {
		sess.Flash(err.Error())
	} else {
		sess.Hours = hours
	}
	s.log(r.Context()).Debug("range set", "range", sess.DateRange, "hours", sess.Hours.String())
	s.redirect(w, r, sess, "/choose", http.StatusSeeOther)
}

// parseHours applies the optional begin and end times of day to cur.
func parseHours(cur agenda.WakingHours, beginText, endText string) (agenda.WakingHours, error) {
	hours := cur
	if text := strings.TrimSpace(beginText); text != "" {
		c, err := agenda.ParseClock(text)
		if err != nil {
			return cur, err
		}
		hours.Start = c
	}
	if text := strings.TrimSpace(endText); text != "" {
		c, err := agenda.ParseClock(text)
		if err != nil {
			return cur, err
		}
		hours.End = c
	}
	if hours == cur {
		return cur, nil
	}
	if err := hours.Validate(); err != nil {
		return cur, err
	}
	return hours, nil
}

func (s *Server) handleSelectCalendars(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	ctx := r.Context()
	sess := s.load(r)
	sess.Selected = uniqueIDs(r.PostForm["calendar"])

	cals := sess.SelectedCalendars()
	if len(cals) == 0 {
		sess.Flash("Select at least one calendar.")
		s.redirect(w, r, sess, "/index", http.StatusSeeOther)
		return
	}
	tok, ok := s.token(ctx, sess)
	if !ok {
		s.redirect(w, r, sess, "/oauth2callback", http.StatusSeeOther)
		return
	}

	res, err := s.compute(ctx, tok, sess, cals)
	switch {
	case err != nil:
		s.log(ctx).Error("free times failed", "err", err)
		sess.Flash("Could not compute free times: " + err.Error())
	case len(res.Lines) == 0:
		sess.Flash("No free time in the selected range.")
	default:
		for _, line := range res.Lines {
			sess.Flash(line)
		}
	}
	s.redirect(w, r, sess, "/index", http.StatusSeeOther)
}

func (s *Server) handleAPIFree(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := s.load(r)

	cals := sess.SelectedCalendars()
	if ids := r.URL.Query()["calendar"]; len(ids) > 0 {
		cals = schedule.SelectCalendars(sess.Calendars, ids)
	}
	tok, ok := s.token(ctx, sess)
	if !ok {
		s.save(w, r, sess)
		writeJSONError(w, http.StatusUnauthorized, "not authorized")
		return
	}
	if len(cals) == 0 {
		s.save(w, r, sess)
		writeJSONError(w, http.StatusBadRequest, "no calendars selected")
		return
	}
	res, err := s.compute(ctx, tok, sess, cals)
	if !s.save(w, r, sess) {
		return
	}
	if err != nil {
		s.log(ctx).Error("free times failed", "err", err)
		status := http.StatusBadGateway
		var inv *agenda.InvariantViolationError
		if errors.As(err, &inv) {
			status = http.StatusInternalServerError
		}
		writeJSONError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) compute(ctx context.Context, tok *oauth2.Token, sess *session.Session, cals []schedule.Calendar) (*schedule.Result, error) {
	provider, err := s.providers(ctx, tok)
	if err != nil {
		return nil, err
	}
	planner := &schedule.Planner{
		Provider: provider,
		Location: s.loc,
		Hours:    sess.Hours,
		Logger:   s.log(ctx),
	}
	res, err := planner.FreeTimes(ctx, cals, sess.Range())
	if err != nil {
		sess.Free = nil
		return nil, err
	}
	sess.Free = res.Free
	return res, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(err.Error()))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// load returns the caller's session, starting a fresh one when the cookie is
// missing, forged or expired.
func (s *Server) load(r *http.Request) *session.Session {
	if id := s.cookies.read(r); id != "" {
		sess, err := s.store.Load(r.Context(), id)
		if err == nil {
			return sess
		}
		if !errors.Is(err, session.ErrNotFound) {
			s.log(r.Context()).Warn("session load failed", "err", err)
		}
	}
	return session.New(s.now().In(s.loc), s.hours)
}

func (s *Server) save(w http.ResponseWriter, r *http.Request, sess *session.Session) bool {
	if err := s.store.Save(r.Context(), sess); err != nil {
		s.log(r.Context()).Error("session save failed", "err", err)
		http.Error(w, "session unavailable", http.StatusInternalServerError)
		return false
	}
	s.cookies.write(w, sess.ID)
	return true
}

func (s *Server) redirect(w http.ResponseWriter, r *http.Request, sess *session.Session, target string, code int) {
	if !s.save(w, r, sess) {
		return
	}
	http.Redirect(w, r, target, code)
}

// token returns a usable OAuth token for the session, refreshing it when
// needed.
func (s *Server) token(ctx context.Context, sess *session.Session) (*oauth2.Token, bool) {
	if sess.Token == nil {
		return nil, false
	}
	tok, err := s.flow.Refresh(ctx, sess.Token)
	if err != nil {
		s.log(ctx).Info("session credentials no longer valid", "err", err)
		sess.Token = nil
		return nil, false
	}
	sess.Token = tok
	return tok, true
}

func (s *Server) log(ctx context.Context) *slog.Logger {
	if id := RequestIDFromContext(ctx); id != "" {
		return s.logger.With("request_id", id)
	}
	return s.logger
}

type calendarRow struct {
	ID          string
	Summary     string
	Description string
	Checked     bool
}

type pageData struct {
	Authorized bool
	DateRange  string
	Begin      string
	End        string
	WakeStart  string
	WakeEnd    string
	BeginTime  string
	EndTime    string
	Calendars  []calendarRow
	Flashes    []string
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	begin := sess.Begin.In(s.loc)
	wakeStart, wakeEnd := sess.Hours.Window(begin)
	data := pageData{
		Authorized: sess.Token != nil,
		DateRange:  sess.DateRange,
		Begin:      begin.Format(time.RFC3339),
		End:        sess.End.In(s.loc).Format(time.RFC3339),
		WakeStart:  wakeStart.Format(time.RFC3339),
		WakeEnd:    wakeEnd.Format(time.RFC3339),
		BeginTime:  sess.Hours.Start.String(),
		EndTime:    sess.Hours.End.String(),
		Flashes:    sess.TakeFlashes(),
	}
	for _, cal := range sess.Calendars {
		data.Calendars = append(data.Calendars, calendarRow{
			ID:          cal.ID,
			Summary:     cal.Summary,
			Description: cal.Description,
			Checked:     sess.IsSelected(cal.ID),
		})
	}
	if !s.save(w, r, sess) {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.Execute(w, data); err != nil {
		s.log(r.Context()).Error("template execution failed", "err", err)
	}
}

func uniqueIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id != "" && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
