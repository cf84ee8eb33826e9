package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	playground "github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"

	"github.com/rezonia/facturx-fr/internal/ereporting"
	"github.com/rezonia/facturx-fr/internal/generator"
	"github.com/rezonia/facturx-fr/internal/lifecycle"
	"github.com/rezonia/facturx-fr/internal/model"
	parser "github.com/rezonia/facturx-fr/internal/parser/xml"
	"github.com/rezonia/facturx-fr/internal/pdf"
	"github.com/rezonia/facturx-fr/internal/signature"
	"github.com/rezonia/facturx-fr/internal/signature/trust"
	xmlsig "github.com/rezonia/facturx-fr/internal/signature/xml"
	"github.com/rezonia/facturx-fr/internal/validator"
)

func init() {
	if v, ok := binding.Validator.Engine().(*playground.Validate); ok {
		_ = v.RegisterValidation("siren", func(fl playground.FieldLevel) bool {
			return model.ValidSiren(fl.Field().String())
		})
	}
}

// Server represents the HTTP API server
type Server struct {
	config     *Config
	router     *gin.Engine
	generators *generator.Registry
	facturx    *generator.FacturXGenerator
	validator  *validator.Validator
	parsers    *parser.Registry
	verifiers  *signature.Registry
	embedder   *pdf.Embedder
	log        *log.Entry
}

// NewServer creates a new API server
func NewServer(config *Config) *Server {
	if !config.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	if config.Debug {
		router.Use(gin.Logger())
	}

	logger := log.WithField("component", "server")

	trustStore, err := trust.NewStore(trust.WithSoftFail())
	if err != nil {
		logger.WithError(err).Warn("system root CAs unavailable, starting with an empty trust store")
		trustStore = trust.NewEmptyStore(trust.WithSoftFail())
	}
	if config.TrustedCertsDir != "" {
		if n, err := trustStore.LoadDirectory(config.TrustedCertsDir); err != nil {
			logger.WithError(err).Warn("could not load trusted certificates")
		} else {
			logger.WithField("count", n).Debug("loaded trusted certificates")
		}
	}

	verifiers := signature.NewRegistry()
	verifiers.Register(xmlsig.NewVerifier(trustStore))

	s := &Server{
		config:     config,
		router:     router,
		generators: generator.NewRegistry(),
		facturx:    generator.NewFacturXGenerator(),
		validator:  validator.New(),
		parsers:    parser.NewRegistry(),
		verifiers:  verifiers,
		embedder:   pdf.NewEmbedder(),
		log:        logger,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// Health check
	s.router.GET("/health", s.handleHealth)

	// API v1
	v1 := s.router.Group("/api/v1")
	{
		// Generation endpoints
		v1.POST("/generate/cii", s.handleGenerateCII)
		v1.POST("/generate/ubl", s.handleGenerateUBL)
		v1.POST("/generate/facturx", s.handleGenerateFacturX)

		// Document endpoints
		v1.POST("/validate", s.handleValidate)
		v1.POST("/parse", s.handleParse)
		v1.POST("/verify", s.handleVerify)

		// E-reporting
		v1.POST("/ereporting/transaction", s.handleEReportingTransaction)

		// Lifecycle reference data
		v1.GET("/lifecycle/statuses", s.handleLifecycleStatuses)
		v1.GET("/lifecycle/transitions/:code", s.handleLifecycleTransitions)
	}
}

// Run starts the HTTP server
func (s *Server) Run() error {
	srv := &http.Server{
		Addr:         s.config.Address,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}
	s.log.WithFields(log.Fields{
		"address":     s.config.Address,
		"environment": s.config.Environment,
	}).Info("starting HTTP API")
	return srv.ListenAndServe()
}

// Handler returns the http.Handler for use with custom servers
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleGenerateCII(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	profile, err := parseProfile(req.Profile)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := req.Invoice.Validate(); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	xmlData, err := s.generators.Generate(req.Invoice, model.FormatCII, profile)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.Data(http.StatusOK, "application/xml; charset=utf-8", xmlData)
}

func (s *Server) handleGenerateUBL(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	profile, err := parseProfile(req.Profile)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := req.Invoice.Validate(); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	var xmlData []byte
	if req.Peppol {
		xmlData, err = generator.NewUBLGenerator(generator.WithPeppol()).Generate(req.Invoice, profile)
	} else {
		xmlData, err = s.generators.Generate(req.Invoice, model.FormatUBL, profile)
	}
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.Data(http.StatusOK, "application/xml; charset=utf-8", xmlData)
}

func (s *Server) handleGenerateFacturX(c *gin.Context) {
	var (
		inv        *model.Invoice
		profileStr string
		pdfData    []byte
	)

	if c.ContentType() == "multipart/form-data" {
		fileHeader, err := c.FormFile("pdf")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing pdf file part"})
			return
		}
		f, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read pdf file part"})
			return
		}
		defer f.Close()
		pdfData, err = io.ReadAll(f)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read pdf file part"})
			return
		}

		invoiceJSON := c.PostForm("invoice")
		if invoiceJSON == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing invoice form field"})
			return
		}
		inv = &model.Invoice{}
		if err := json.Unmarshal([]byte(invoiceJSON), inv); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid invoice JSON: " + err.Error()})
			return
		}
		profileStr = c.PostForm("profile")
	} else {
		var req FacturXRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		inv, profileStr, pdfData = req.Invoice, req.Profile, req.PDF
	}

	profile, err := parseProfile(profileStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := inv.Validate(); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	result, err := s.facturx.GenerateWithPDF(inv, profile, pdfData)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="factur-x.pdf"`)
	c.Data(http.StatusOK, "application/pdf", result.PDF)
}

func (s *Server) handleValidate(c *gin.Context) {
	body, ok := rawBody(c)
	if !ok {
		return
	}

	data := body
	isFacturX := false
	if pdf.IsPDF(body) {
		xmlData, err := s.embedder.ExtractXML(body)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "no XML rendition in PDF: " + err.Error()})
			return
		}
		data = xmlData
		isFacturX = true
	}

	findings, err := s.validator.ValidateXML(data, model.FormatUnknown, "")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	format := validator.DetectFormat(data)
	if isFacturX {
		format = model.FormatFacturX
	}

	c.JSON(http.StatusOK, ValidationResponse{
		Valid:    len(findings) == 0,
		Format:   string(format),
		Findings: findings,
	})
}

func (s *Server) handleParse(c *gin.Context) {
	body, ok := rawBody(c)
	if !ok {
		return
	}

	adapter, err := s.parsers.Detect(body)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	inv, err := adapter.Parse(ctx, bytes.NewReader(body))
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, ParseResponse{
		Format:  string(adapter.Format()),
		Invoice: inv,
	})
}

func (s *Server) handleVerify(c *gin.Context) {
	body, ok := rawBody(c)
	if !ok {
		return
	}

	verifier, err := s.verifiers.Detect(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported document format for signature verification"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 60*time.Second)
	defer cancel()

	result, err := verifier.Verify(ctx, body)
	if err != nil {
		resp := gin.H{
			"error":   "signature verification failed",
			"details": err.Error(),
		}
		if result != nil {
			resp["errors"] = result.Errors
		}
		c.JSON(http.StatusUnprocessableEntity, resp)
		return
	}

	response := VerifyResponse{
		Valid:          result.Valid,
		SignatureFound: result.SignatureFound,
		SignatureValid: result.SignatureValid,
		CertChainValid: result.CertChainValid,
		NotRevoked:     result.NotRevoked,
		TimestampValid: result.TimestampValid,
		Format:         result.Format,
		SignedAt:       result.SignedAt,
		Warnings:       result.Warnings,
		Errors:         result.Errors,
	}

	if result.Signer != nil {
		response.Signer = &SignerInfoOutput{
			Name:         result.Signer.Name,
			Organization: result.Signer.Organization,
			SerialNumber: result.Signer.SerialNumber,
			Issuer:       result.Signer.Issuer,
			ValidFrom:    &result.Signer.ValidFrom,
			ValidTo:      &result.Signer.ValidTo,
		}
	}

	if result.Valid {
		c.JSON(http.StatusOK, response)
	} else {
		c.JSON(http.StatusUnprocessableEntity, response)
	}
}

func (s *Server) handleEReportingTransaction(c *gin.Context) {
	var req EReportingTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	siren := req.SellerSiren
	if siren == "" {
		siren = req.Invoice.Seller.Siren
	}
	regime := model.VATRegime(req.Regime)
	if req.Regime == "" {
		regime = model.RegimeNormalMonthly
	}

	reporter, err := ereporting.NewReporter(siren, regime)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tx, err := reporter.TransactionFromInvoice(req.Invoice, model.TransactionType(req.TransactionType), req.CountryCode)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	findings := reporter.ValidateTransaction(tx)
	c.JSON(http.StatusOK, EReportingTransactionResponse{
		Valid:       len(findings) == 0,
		Transaction: tx,
		Findings:    findings,
	})
}

func (s *Server) handleLifecycleStatuses(c *gin.Context) {
	statuses := make([]StatusInfo, 0, len(model.AllStatuses))
	for _, st := range model.AllStatuses {
		category := string(lifecycle.CategoryRecommended)
		if lifecycle.IsMandatory(st) {
			category = string(lifecycle.CategoryMandatory)
		}

		next := lifecycle.Transitions(st)
		codes := make([]int, 0, len(next))
		for _, n := range next {
			codes = append(codes, int(n))
		}

		statuses = append(statuses, StatusInfo{
			Code:           int(st),
			Label:          st.Label(),
			Category:       category,
			Producer:       string(lifecycle.DefaultProducer(st)),
			Terminal:       lifecycle.IsTerminal(st),
			ReasonRequired: lifecycle.RequiresReason(st),
			Transitions:    codes,
		})
	}

	c.JSON(http.StatusOK, gin.H{"statuses": statuses})
}

func (s *Server) handleLifecycleTransitions(c *gin.Context) {
	code, err := strconv.Atoi(c.Param("code"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status code must be numeric"})
		return
	}

	st := model.InvoiceStatus(code)
	if !st.Valid() {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("unknown status code %d", code)})
		return
	}

	next := lifecycle.Transitions(st)
	targets := make([]TransitionTarget, 0, len(next))
	for _, n := range next {
		targets = append(targets, TransitionTarget{Code: int(n), Label: n.Label()})
	}

	c.JSON(http.StatusOK, TransitionsResponse{
		Code:        int(st),
		Label:       st.Label(),
		Terminal:    lifecycle.IsTerminal(st),
		Transitions: targets,
	})
}

// Helper functions

func rawBody(c *gin.Context) ([]byte, bool) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return nil, false
	}
	if len(body) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty request body"})
		return nil, false
	}
	return body, true
}

func parseProfile(s string) (model.Profile, error) {
	if s == "" {
		return model.ProfileEN16931, nil
	}
	p := model.Profile(strings.ToLower(s))
	if !p.Valid() {
		return "", fmt.Errorf("unknown profile %q", s)
	}
	return p, nil
}
