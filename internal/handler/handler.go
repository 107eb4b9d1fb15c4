package handler

import (
	"fmt"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/sysu-ecnc-dev/sa-signup/backend/internal/cache"
	"github.com/sysu-ecnc-dev/sa-signup/backend/internal/config"
	"github.com/sysu-ecnc-dev/sa-signup/backend/internal/domain"
	"github.com/sysu-ecnc-dev/sa-signup/backend/internal/export"
	"github.com/sysu-ecnc-dev/sa-signup/backend/internal/mailqueue"
	"github.com/sysu-ecnc-dev/sa-signup/backend/internal/repository"
)

const tokenCookieName = "__sa_signup_token"

type Handler struct {
	validate   *validator.Validate
	config     *config.Config
	store      repository.Store
	catalog    *domain.Catalog
	cache      cache.SummaryCache
	mailer     mailqueue.Publisher
	exporter   *export.Exporter
	translator ut.Translator
	now        func() time.Time

	Mux *chi.Mux
}

func NewHandler(cfg *config.Config, store repository.Store, catalog *domain.Catalog, summaryCache cache.SummaryCache, mailer mailqueue.Publisher) (*Handler, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	en := en.New()
	uni := ut.New(en, en)
	trans, _ := uni.GetTranslator("en")
	if err := en_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	// 导出文件中的时间按照项目所在地的时区显示
	location, err := time.LoadLocation(cfg.Export.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load export timezone %q: %w", cfg.Export.Timezone, err)
	}

	if summaryCache == nil {
		summaryCache = cache.Nop{}
	}
	if mailer == nil {
		mailer = mailqueue.Nop{}
	}

	return &Handler{
		validate:   validate,
		config:     cfg,
		store:      store,
		catalog:    catalog,
		cache:      summaryCache,
		mailer:     mailer,
		exporter:   export.NewExporter(catalog, location),
		translator: trans,
		now:        time.Now,

		Mux: chi.NewRouter(),
	}, nil
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)

	h.Mux.Get("/status", h.GetStatus)

	// 入口访问码
	h.Mux.Route("/access", func(r chi.Router) {
		r.Post("/", h.EnterAccessCode)
		r.Post("/logout", h.Logout)
	})

	// 以下 API 必须要在输入访问码后才允许调用
	h.Mux.Group(func(r chi.Router) {
		r.Use(h.auth)
		r.Get("/slots", h.GetSlots)

		r.Route("/signups", func(r chi.Router) {
			r.With(h.RequiredRole([]domain.Role{domain.RoleStudent})).Post("/", h.SubmitSignup)

			// 管理面板
			r.Group(func(r chi.Router) {
				r.Use(h.RequiredRole([]domain.Role{domain.RoleAdmin}))
				r.Get("/", h.GetAllSignups)
				r.Get("/export.csv", h.ExportSignupsCSV)
				r.Get("/export.xlsx", h.ExportSignupsXLSX)
				r.Delete("/{id}", h.DeleteSignup)
			})
		})
	})
}
