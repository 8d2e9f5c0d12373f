package socialshare

import (
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/html/v2"
)

//go:embed views/*.html
var viewsFS embed.FS

// NewViewEngine loads the embedded page templates.
func NewViewEngine() (*html.Engine, error) {
	sub, err := fs.Sub(viewsFS, "views")
	if err != nil {
		return nil, fmt.Errorf("views: %w", err)
	}
	return html.NewFileSystem(http.FS(sub), ".html"), nil
}

type presetView struct {
	Preset
	Slug     string
	Selected bool
}

// PageView is the data the preview page template renders.
type PageView struct {
	Title        string
	UploadURL    string
	RenditionURL string
	Formats      []presetView
	Selected     Preset
	State        PreviewState
	AssetID      string
	PreviewURL   string
	Uploading    bool
	Transforming bool
}

// PageHandler renders the preview page. A publicId and format in the query
// restore the preview after a reload.
type PageHandler struct {
	media   MediaService
	catalog *PresetCatalog
	logger  Logger
	dev     *devSession
}

type devSession struct {
	auth   *JWTAuthenticator
	userID string
	ttl    time.Duration
}

func NewPageHandler(media MediaService, catalog *PresetCatalog) *PageHandler {
	if catalog == nil {
		catalog = MustDefaultCatalog()
	}
	return &PageHandler{
		media:   media,
		catalog: catalog,
		logger:  &DefaultLogger{},
	}
}

func (h *PageHandler) WithLogger(l Logger) *PageHandler {
	h.logger = l
	return h
}

// WithDevSession signs visitors in as userID when they have no session.
// Only meant for local development.
func (h *PageHandler) WithDevSession(auth *JWTAuthenticator, userID string, ttl time.Duration) *PageHandler {
	if auth == nil || userID == "" {
		return h
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	h.dev = &devSession{auth: auth, userID: userID, ttl: ttl}
	return h
}

// View builds the page state for a visit.
func (h *PageHandler) View(publicID, format string) (PageView, error) {
	session := NewPreviewSession(h.catalog)
	if err := session.Restore(publicID, format); err != nil {
		return PageView{}, err
	}

	view := PageView{
		Title:        "Social Media Image Creator",
		UploadURL:    "/api/image-upload",
		RenditionURL: "/api/renditions",
		Selected:     session.Preset(),
		State:        session.State(),
		AssetID:      session.AssetID(),
		Uploading:    session.Uploading(),
		Transforming: session.Transforming(),
	}

	for _, p := range h.catalog.All() {
		view.Formats = append(view.Formats, presetView{
			Preset:   p,
			Slug:     p.Slug(),
			Selected: p.Name == session.Preset().Name,
		})
	}

	if t, ok := session.Transformation(); ok {
		url, err := h.media.RenditionURL(session.AssetID(), t)
		if err != nil {
			return PageView{}, err
		}
		view.PreviewURL = url
	}

	return view, nil
}

func (h *PageHandler) Handle(c *fiber.Ctx) error {
	h.ensureDevSession(c)

	view, err := h.View(c.Query("publicId"), c.Query("format"))
	if err != nil {
		return err
	}

	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Render("index", view)
}

func (h *PageHandler) ensureDevSession(c *fiber.Ctx) {
	if h.dev == nil {
		return
	}

	if _, ok := h.dev.auth.Authenticate(c); ok {
		return
	}

	token, err := h.dev.auth.IssueToken(h.dev.userID, h.dev.ttl)
	if err != nil {
		h.logger.Error("dev session: issue token", "error", err)
		return
	}

	c.Cookie(&fiber.Cookie{
		Name:     h.dev.auth.CookieName(),
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(h.dev.ttl),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
