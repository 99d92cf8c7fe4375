package main

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hostelpay/go-hostel-fee-system/shared/utils"
)

// ServiceClient handles HTTP communication with one backend service.
type ServiceClient struct {
	baseURL    string
	httpClient *http.Client
}

// ServiceClients holds the clients for all backend services.
type ServiceClients struct {
	AuthService    *ServiceClient
	TenantService  *ServiceClient
	StudentService *ServiceClient
	PaymentService *ServiceClient
}

// NewServiceClient creates a new service client
func NewServiceClient(baseURL string) *ServiceClient {
	return &ServiceClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ProxyRequest forwards the request to the backend service verbatim.
// The Authorization header travels with it; each service validates the
// token itself, so the gateway's own check is just an early rejection.
func (sc *ServiceClient) ProxyRequest(c *gin.Context) {
	targetURL := sc.baseURL + c.Request.URL.Path
	if c.Request.URL.RawQuery != "" {
		targetURL += "?" + c.Request.URL.RawQuery
	}

	var body io.Reader
	if c.Request.Body != nil {
		bodyBytes, err := io.ReadAll(c.Request.Body)
		if err != nil {
			utils.InternalServerErrorResponse(c, "Failed to read request body")
			return
		}
		body = bytes.NewBuffer(bodyBytes)
	}

	req, err := http.NewRequest(c.Request.Method, targetURL, body)
	if err != nil {
		utils.InternalServerErrorResponse(c, "Failed to create request")
		return
	}

	// Copy headers
	for key, values := range c.Request.Header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	// Add user context headers for service-side logging
	if userID, exists := c.Get("user_id"); exists {
		req.Header.Set("X-User-ID", userID.(string))
	}
	if tenantID, exists := c.Get("tenant_id"); exists {
		req.Header.Set("X-Tenant-ID", tenantID.(string))
	}
	if role, exists := c.Get("role"); exists {
		req.Header.Set("X-User-Role", role.(string))
	}

	resp, err := sc.httpClient.Do(req)
	if err != nil {
		utils.ServiceUnavailableResponse(c, "Failed to communicate with service")
		return
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		utils.InternalServerErrorResponse(c, "Failed to read response")
		return
	}

	// Copy response headers
	for key, values := range resp.Header {
		for _, value := range values {
			c.Header(key, value)
		}
	}

	c.Data(resp.StatusCode, resp.Header.Get("Content-Type"), responseBody)
}

// HealthCheck checks if a service is healthy
func (sc *ServiceClient) HealthCheck() error {
	req, err := http.NewRequest("GET", sc.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := sc.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service returned status %d", resp.StatusCode)
	}

	return nil
}

// GetServiceStatus returns the health of every backend service.
func (scs *ServiceClients) GetServiceStatus() map[string]interface{} {
	status := make(map[string]interface{})

	checks := map[string]*ServiceClient{
		"auth_service":    scs.AuthService,
		"tenant_service":  scs.TenantService,
		"student_service": scs.StudentService,
		"payment_service": scs.PaymentService,
	}

	for name, client := range checks {
		if err := client.HealthCheck(); err != nil {
			status[name] = map[string]interface{}{
				"healthy": false,
				"error":   err.Error(),
			}
			continue
		}
		status[name] = map[string]interface{}{
			"healthy": true,
		}
	}

	return status
}
