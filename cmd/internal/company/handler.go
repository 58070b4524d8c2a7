package company

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"coldeye/cmd/internal/httpx"
)

type companyResponse struct {
	CompanyID  int64  `json:"companyId"`
	Name       string `json:"name"`
	Contact    string `json:"contact"`
	Phone      string `json:"phone"`
	CreateTime string `json:"createTime"`
}

type pageResponse struct {
	TotalCount int64             `json:"totalCount"`
	PageSize   int               `json:"pageSize"`
	TotalPage  int               `json:"totalPage"`
	CurrPage   int               `json:"currPage"`
	List       []companyResponse `json:"list"`
}

func toCompanyResponse(c Company) companyResponse {
	return companyResponse{
		CompanyID:  c.ID,
		Name:       c.Name,
		Contact:    c.Contact,
		Phone:      c.Phone,
		CreateTime: httpx.FormatTime(c.CreatedAt),
	}
}

// Handler serves /sys/company.
type Handler struct {
	log *slog.Logger
	svc *Service
}

func NewHandler(log *slog.Logger, svc *Service) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{log: log, svc: svc}
}

// Register mounts the routes behind guard, which must reject requests without a session.
func (h *Handler) Register(mux *http.ServeMux, guard func(http.Handler) http.Handler) {
	if h == nil || mux == nil {
		return
	}
	if guard == nil {
		guard = func(next http.Handler) http.Handler { return next }
	}
	mux.Handle("/sys/company/list", guard(http.HandlerFunc(h.handleList)))
	mux.Handle("/sys/company/info/{id}", guard(http.HandlerFunc(h.handleInfo)))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.MethodNotAllowed(w, http.MethodGet)
		return
	}

	q := r.URL.Query()
	page, err1 := optionalInt(q.Get("page"))
	limit, err2 := optionalInt(q.Get("limit"))
	if err1 != nil || err2 != nil {
		httpx.WriteError(w, http.StatusBadRequest, "page and limit must be integers")
		return
	}

	res, err := h.svc.QueryPage(r.Context(), PageQuery{
		Page:  page,
		Limit: limit,
		Name:  strings.TrimSpace(q.Get("name")),
	})
	if err != nil {
		h.writeError(w, "company.list.fail", err)
		return
	}

	out := pageResponse{
		TotalCount: res.TotalCount,
		PageSize:   res.PageSize,
		TotalPage:  res.TotalPage,
		CurrPage:   res.CurrPage,
		List:       make([]companyResponse, 0, len(res.List)),
	}
	for _, c := range res.List {
		out.List = append(out.List, toCompanyResponse(c))
	}
	httpx.WriteOK(w, out)
}

func (h *Handler) handleInfo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.MethodNotAllowed(w, http.MethodGet)
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.WriteError(w, http.StatusBadRequest, "invalid company id")
		return
	}

	c, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, "company.info.fail", err)
		return
	}
	httpx.WriteOK(w, toCompanyResponse(c))
}

func (h *Handler) writeError(w http.ResponseWriter, event string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "company not found")
	case errors.Is(err, ErrUnavailable):
		h.log.Error(event, "err", err, "kind", "unavailable")
		httpx.WriteError(w, http.StatusServiceUnavailable, "service temporarily unavailable")
	default:
		h.log.Error(event, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}

func optionalInt(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}
