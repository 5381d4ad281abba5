package leads

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/loandesk/backoffice/internal/platform/httpx"
	"github.com/loandesk/backoffice/internal/shared"
	"github.com/loandesk/backoffice/internal/view"
)

// Invalidator drops cached listing pages for an org.
type Invalidator interface {
	Invalidate(ctx context.Context, orgID string) error
}

// HandlerConfig tunes the lead browser pages.
type HandlerConfig struct {
	PageSizes        []int
	Columns          []Column
	AmountLocale     string
	StatusPathPrefix string
}

// Handler serves the lead browser.
type Handler struct {
	logger     *slog.Logger
	workspaces *Workspaces
	cache      Invalidator
	templates  *view.Engine
	csrf       *shared.CSRFManager
	validator  *validator.Validate
	cfg        HandlerConfig
	amounts    amountFormatter
}

// NewHandler wires the lead browser handler. cache may be nil.
func NewHandler(
	logger *slog.Logger,
	workspaces *Workspaces,
	cache Invalidator,
	templates *view.Engine,
	csrf *shared.CSRFManager,
	cfg HandlerConfig,
) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.PageSizes) == 0 {
		cfg.PageSizes = []int{10, 25, 50, 100}
	}
	if len(cfg.Columns) == 0 {
		cfg.Columns = DefaultColumns
	}
	if cfg.StatusPathPrefix == "" {
		cfg.StatusPathPrefix = "/status"
	}
	return &Handler{
		logger:     logger,
		workspaces: workspaces,
		cache:      cache,
		templates:  templates,
		csrf:       csrf,
		validator:  validator.New(),
		cfg:        cfg,
		amounts:    newAmountFormatter(cfg.AmountLocale),
	}
}

type formErrors map[string]string

type filterForm struct {
	Search    string   `validate:"max=200"`
	MinAmount *float64 `validate:"omitempty,gte=0"`
	MaxAmount *float64 `validate:"omitempty,gte=0"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	rv := h.view(r)
	snap := rv.Mount(r.Context())
	status := http.StatusOK
	if errors.Is(snap.Err, ErrMissingIdentity) {
		status = http.StatusUnauthorized
	}
	h.renderList(w, r, snap, status)
}

func (h *Handler) data(w http.ResponseWriter, r *http.Request) {
	snap := h.view(r).Mount(r.Context())
	if snap.Err != nil && snap.State == StateError {
		switch {
		case errors.Is(snap.Err, ErrMissingIdentity):
			httpx.RespondError(w, httpx.ErrUnauthorized)
		case IsTransport(snap.Err):
			httpx.RespondError(w, httpx.ErrUpstream)
		default:
			httpx.RespondError(w, snap.Err)
		}
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"state":         snap.State.String(),
		"rows":          snap.Rows,
		"totalCount":    snap.TotalCount,
		"page":          snap.Pagination.Page,
		"pageSize":      snap.Pagination.PerPage,
		"totalPages":    snap.Pagination.TotalPages,
		"filterOptions": snap.Options,
		"degraded":      snap.Degraded,
	})
}

func (h *Handler) next(w http.ResponseWriter, r *http.Request) {
	h.view(r).Next(r.Context())
	h.redirect(w, r, "/leads")
}

func (h *Handler) previous(w http.ResponseWriter, r *http.Request) {
	h.view(r).Previous(r.Context())
	h.redirect(w, r, "/leads")
}

func (h *Handler) goToPage(w http.ResponseWriter, r *http.Request) {
	page, err := strconv.Atoi(r.PostFormValue("page"))
	if err != nil {
		http.Error(w, "Invalid page", http.StatusBadRequest)
		return
	}
	h.view(r).GoToPage(r.Context(), page)
	h.redirect(w, r, "/leads")
}

func (h *Handler) pageSize(w http.ResponseWriter, r *http.Request) {
	size, err := strconv.Atoi(r.PostFormValue("size"))
	if err != nil {
		http.Error(w, "Invalid page size", http.StatusBadRequest)
		return
	}
	if err := h.validator.Var(size, "required,oneof="+joinInts(h.cfg.PageSizes)); err != nil {
		http.Error(w, "Unsupported page size", http.StatusBadRequest)
		return
	}
	h.view(r).SetPageSize(r.Context(), size)
	h.redirect(w, r, "/leads")
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	text := r.PostFormValue("search")
	if err := h.validator.Var(text, "max=200"); err != nil {
		http.Error(w, "Search text too long", http.StatusBadRequest)
		return
	}
	h.view(r).Search(r.Context(), text)
	h.redirect(w, r, "/leads")
}

func (h *Handler) retry(w http.ResponseWriter, r *http.Request) {
	h.view(r).Retry(r.Context())
	h.redirect(w, r, "/leads")
}

func (h *Handler) reload(w http.ResponseWriter, r *http.Request) {
	scope := scopeFromRequest(r)
	if h.cache != nil && scope.Valid() {
		if err := h.cache.Invalidate(r.Context(), scope.OrgID); err != nil {
			h.logger.Warn("invalidate listing cache", slog.Any("error", err), slog.String("org_id", scope.OrgID))
		}
	}
	snap := h.view(r).Reload(r.Context())
	if snap.State == StateReady {
		addFlash(r, "success", "Leads refreshed")
	}
	h.redirect(w, r, "/leads")
}

func (h *Handler) showFilters(w http.ResponseWriter, r *http.Request) {
	rv := h.view(r)
	snap := rv.Snapshot()
	if !snap.Editing {
		snap = rv.BeginEdit()
	}
	h.renderFilters(w, r, snap, formErrors{}, http.StatusOK)
}

func (h *Handler) toggleFilter(w http.ResponseWriter, r *http.Request) {
	field, err := ParseFilterField(r.PostFormValue("field"))
	if err != nil {
		http.Error(w, "Unknown filter", http.StatusBadRequest)
		return
	}
	h.view(r).Toggle(field, r.PostFormValue("value"))
	h.redirect(w, r, "/leads/filters")
}

func (h *Handler) clearFilters(w http.ResponseWriter, r *http.Request) {
	if rv, err := h.existingView(r); err == nil {
		rv.ClearDraft()
	}
	h.redirect(w, r, "/leads/filters")
}

func (h *Handler) cancelFilters(w http.ResponseWriter, r *http.Request) {
	if rv, err := h.existingView(r); err == nil {
		rv.DiscardEdit()
	}
	h.redirect(w, r, "/leads")
}

func (h *Handler) applyFilters(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	rv := h.view(r)
	criteria, errs := h.parseFilterForm(r)
	if len(errs) > 0 {
		snap := rv.SetDraft(criteria)
		h.renderFilters(w, r, snap, errs, http.StatusBadRequest)
		return
	}
	rv.SetDraft(criteria)
	rv.ApplyEdit(r.Context())
	h.redirect(w, r, "/leads")
}

func (h *Handler) statusHop(w http.ResponseWriter, r *http.Request) {
	code, err := strconv.Atoi(chi.URLParam(r, "code"))
	if err != nil {
		http.Error(w, "Invalid status code", http.StatusBadRequest)
		return
	}
	target := strings.TrimRight(h.cfg.StatusPathPrefix, "/") + "/" + strconv.Itoa(code)
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (h *Handler) parseFilterForm(r *http.Request) (FilterCriteria, formErrors) {
	errs := formErrors{}
	form := filterForm{Search: strings.TrimSpace(r.PostFormValue("search"))}
	var err error
	if form.MinAmount, err = parseAmount(r.PostFormValue("min_amount")); err != nil {
		errs["min_amount"] = "Minimum amount must be a number"
	}
	if form.MaxAmount, err = parseAmount(r.PostFormValue("max_amount")); err != nil {
		errs["max_amount"] = "Maximum amount must be a number"
	}
	if err := h.validator.Struct(form); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fieldErr := range fieldErrs {
				errs[formKey(fieldErr.Field())] = fieldErr.Error()
			}
		}
	}

	criteria := FilterCriteria{
		Search:    form.Search,
		MinAmount: form.MinAmount,
		MaxAmount: form.MaxAmount,
	}
	for _, field := range FilterFields {
		*criteria.Set(field) = NewStringSet(r.PostForm[string(field)]...)
	}
	return criteria, errs
}

func parseAmount(raw string) (*float64, error) {
	raw = strings.TrimSpace(strings.ReplaceAll(raw, ",", ""))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func formKey(field string) string {
	switch field {
	case "MinAmount":
		return "min_amount"
	case "MaxAmount":
		return "max_amount"
	case "Search":
		return "search"
	}
	return "general"
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, " ")
}

// view returns the session's ResultView, creating it on first use.
func (h *Handler) view(r *http.Request) *ResultView {
	sessionID := ""
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sessionID = sess.ID
	}
	return h.workspaces.Get(sessionID, scopeFromRequest(r))
}

// existingView returns the session's ResultView without creating one.
func (h *Handler) existingView(r *http.Request) (*ResultView, error) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return nil, ErrNoView
	}
	return h.workspaces.Lookup(sess.ID)
}

func scopeFromRequest(r *http.Request) Scope {
	orgID, userID := shared.IdentityFromContext(r.Context())
	return Scope{OrgID: orgID, UserID: userID}
}

// Helpers
func (h *Handler) renderList(w http.ResponseWriter, r *http.Request, snap Snapshot, status int) {
	h.render(w, r, "pages/leads.html", map[string]any{
		"Snapshot":  snap,
		"Error":     snap.ErrorMessage(),
		"Columns":   h.cfg.Columns,
		"Rows":      buildTable(snap.Rows, h.cfg.Columns, h.amounts),
		"PageSizes": h.cfg.PageSizes,
		"Active":    snap.Applied.ActiveCount(),
	}, status)
}

func (h *Handler) renderFilters(w http.ResponseWriter, r *http.Request, snap Snapshot, errs formErrors, status int) {
	h.render(w, r, "pages/leads_filters.html", map[string]any{
		"Draft":  snap.Draft,
		"Groups": buildFilterGroups(snap.Options, snap.Draft),
		"Errors": errs,
	}, status)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, tmpl string, data map[string]any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)

	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}

	viewData := view.TemplateData{
		Title:       "Leads",
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Data:        data,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.templates.Render(w, tmpl, viewData); err != nil {
		h.logger.Error("template render failed", slog.Any("error", err), slog.String("template", tmpl))
	}
}

func (h *Handler) redirect(w http.ResponseWriter, r *http.Request, url string) {
	http.Redirect(w, r, url, http.StatusSeeOther)
}

func addFlash(r *http.Request, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
}
