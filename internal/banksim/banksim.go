package banksim

import (
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"payroll-gateway/internal/payroll"
	"payroll-gateway/internal/saib"
)

// Config holds the credentials the simulator accepts.
type Config struct {
	Username     string
	Password     string
	ClientID     string
	ClientSecret string
	Verbose      bool
}

// Simulator is an in-memory stand-in for the SAIB B2B payroll API, used for
// development and the end-to-end tests. It issues tokens, checks the
// detached-JWS header, verifies declared totals against the decompressed
// detail block, and answers inquiries for everything it accepted.
type Simulator struct {
	cfg Config

	mu          sync.Mutex
	tokens      map[string]bool
	submissions map[string]*submission
	seq         int
}

type submission struct {
	request   saib.PaymentRequest
	reference string
}

func New(cfg Config) *Simulator {
	return &Simulator{
		cfg:         cfg,
		tokens:      make(map[string]bool),
		submissions: make(map[string]*submission),
	}
}

// Router builds the gin engine with all simulator routes.
func (s *Simulator) Router() *gin.Engine {
	if s.cfg.Verbose {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	if s.cfg.Verbose {
		router.Use(gin.Logger())
	}

	router.POST("/oauth/token", s.token)

	authed := router.Group("/", s.requireToken)
	authed.POST(saib.PaymentPath, s.payment)
	authed.POST(saib.InquiryPath, s.inquiry)
	authed.POST(saib.SignedFilePath, s.signedFile)

	return router
}

func (s *Simulator) token(c *gin.Context) {
	grant := c.PostForm("grant_type")
	if grant != "password" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported_grant_type"})
		return
	}
	if c.PostForm("username") != s.cfg.Username || c.PostForm("password") != s.cfg.Password {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_grant"})
		return
	}
	clientID := c.PostForm("client_id")
	if clientID == "" {
		clientID = c.GetHeader("x-ibm-client-id")
	}
	if clientID != s.cfg.ClientID {
		c.JSON(http.StatusForbidden, gin.H{"error": "unauthorized_client"})
		return
	}

	tok := uuid.NewString()
	s.mu.Lock()
	s.tokens[tok] = true
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{
		"access_token": tok,
		"token_type":   "Bearer",
		"expires_in":   3600,
	})
}

func (s *Simulator) requireToken(c *gin.Context) {
	auth := c.GetHeader("Authorization")
	tok := strings.TrimPrefix(auth, "Bearer ")
	s.mu.Lock()
	known := s.tokens[tok]
	s.mu.Unlock()
	if tok == "" || tok == auth || !known {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_token"})
		return
	}
	c.Next()
}

func (s *Simulator) payment(c *gin.Context) {
	if c.GetHeader("x-jws-signature") == "" {
		c.JSON(http.StatusOK, bankError("SIG001", "missing x-jws-signature header"))
		return
	}

	var req saib.PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusOK, bankError("REQ001", "request body is not a payroll payment"))
		return
	}
	if req.APIReference == "" {
		c.JSON(http.StatusOK, bankError("REQ002", "ApiReference is required"))
		return
	}

	lines, err := payroll.DecompressLines(req.PayrollDetails)
	if err != nil {
		c.JSON(http.StatusOK, bankError("PAY001", "PayrollDetails block is unreadable"))
		return
	}
	if len(lines) != req.PayrollTransactionCount {
		c.JSON(http.StatusOK, bankError("PAY002",
			fmt.Sprintf("declared count %d does not match %d detail lines", req.PayrollTransactionCount, len(lines))))
		return
	}
	declared, err := decimal.NewFromString(req.PayrollTransactionAmount)
	if err != nil {
		c.JSON(http.StatusOK, bankError("PAY003", "PayrollTransactionAmount is not a number"))
		return
	}
	sum := decimal.Zero
	for _, l := range lines {
		amount, err := decimal.NewFromString(l.ValueAmount)
		if err != nil {
			c.JSON(http.StatusOK, bankError("PAY004", "a detail line amount is not a number"))
			return
		}
		sum = sum.Add(amount)
	}
	if !declared.Round(2).Equal(sum.Round(2)) {
		c.JSON(http.StatusOK, bankError("PAY005",
			fmt.Sprintf("declared amount %s does not match line sum %s", declared.StringFixed(2), sum.StringFixed(2))))
		return
	}

	s.mu.Lock()
	sub, exists := s.submissions[req.APIReference]
	if !exists {
		s.seq++
		sub = &submission{request: req, reference: fmt.Sprintf("SAIB%06d", s.seq)}
		s.submissions[req.APIReference] = sub
	}
	s.mu.Unlock()

	// A replayed ApiReference deliberately answers with the original
	// reference: this is the idempotency contract the gateway relies on.
	resp := saib.PaymentResponse{}
	resp.Data.StatusCode = "OK"
	resp.Data.StatusDesc = "payroll accepted for processing"
	resp.Data.ReferenceNumber = sub.reference
	c.JSON(http.StatusOK, resp)
}

func (s *Simulator) inquiry(c *gin.Context) {
	var req saib.InquiryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusOK, bankError("REQ001", "request body is not an inquiry"))
		return
	}

	s.mu.Lock()
	sub, exists := s.submissions[req.APIReference]
	s.mu.Unlock()
	if !exists {
		c.JSON(http.StatusOK, bankError("INQ001", "no submission with reference "+req.APIReference))
		return
	}

	resp := saib.InquiryResponse{}
	resp.Data.StatusCode = "OK"
	resp.Data.StatusDesc = fmt.Sprintf("payroll %s processed as %s", req.APIReference, sub.reference)
	resp.Data.PayrollDetails = sub.request.PayrollDetails
	c.JSON(http.StatusOK, resp)
}

func (s *Simulator) signedFile(c *gin.Context) {
	var req saib.InquiryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusOK, bankError("REQ001", "request body is not a file request"))
		return
	}

	s.mu.Lock()
	sub, exists := s.submissions[req.APIReference]
	s.mu.Unlock()
	if !exists {
		c.JSON(http.StatusOK, bankError("FIL001", "no submission with reference "+req.APIReference))
		return
	}

	resp := saib.SignedFileResponse{}
	resp.Data.FileName = req.APIReference + ".sig"
	resp.Data.FileContent = sub.request.PayrollDetails
	c.JSON(http.StatusOK, resp)
}

func bankError(code, desc string) gin.H {
	return gin.H{"ErrorCode": code, "ErrorDesc": desc}
}
