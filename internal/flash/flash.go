package flash

import (
	"crypto/sha256"
	"encoding/gob"
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/logging"
)

const cookieName = "flash"

// Categories understood by the templates.
const (
	Success = "success"
	Info    = "info"
	Warning = "warning"
	Danger  = "danger"
)

type Message struct {
	Category string
	Text     string
}

func init() {
	gob.Register(Message{})
}

// Store keeps one-shot messages in a signed cookie until the next page render.
type Store struct {
	store sessions.Store
}

func New(secret string, secure bool) *Store {
	key := sha256.Sum256([]byte(secret))
	cs := sessions.NewCookieStore(key[:])
	cs.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   3600,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &Store{store: cs}
}

func (s *Store) Add(c echo.Context, category, text string) {
	sess, _ := s.store.Get(c.Request(), cookieName)
	sess.AddFlash(Message{Category: category, Text: text})
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		logging.FromContext(c.Request().Context()).Warn("flash_save_failed", "error", err)
	}
}

// Pop drains pending messages. It writes a cookie, so it must run before the
// response body.
func (s *Store) Pop(c echo.Context) []Message {
	sess, err := s.store.Get(c.Request(), cookieName)
	if err != nil && sess == nil {
		return nil
	}
	raw := sess.Flashes()
	if len(raw) == 0 {
		return nil
	}
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		logging.FromContext(c.Request().Context()).Warn("flash_save_failed", "error", err)
	}

	out := make([]Message, 0, len(raw))
	for _, r := range raw {
		if m, ok := r.(Message); ok {
			out = append(out, m)
		}
	}
	return out
}
