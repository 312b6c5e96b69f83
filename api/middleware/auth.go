/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/paymatch/paymatch/config"
)

const (
	KeyHeader = "X-Paymatch-Key"

	// DeviceWebhookPath is authenticated by the device credential instead of
	// the operator key.
	DeviceWebhookPath = "/sms/webhook"
)

// publicPaths never require the operator key.
var publicPaths = map[string]bool{
	"/":               true,
	DeviceWebhookPath: true,
}

// Authenticate guards operator routes with the server secret key when secure
// mode is on.
func Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		if publicPaths[c.Request.URL.Path] {
			c.Next()
			return
		}

		conf, err := config.Fetch()
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Server configuration is not loaded"})
			return
		}
		if !conf.Server.Secure {
			c.Next()
			return
		}
		if conf.Server.SecretKey == "" {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Secret key is not configured"})
			return
		}

		key := extractKey(c)
		if key == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required. Use X-Paymatch-Key header"})
			return
		}
		if !secureCompare(conf.Server.SecretKey, key) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid secret key"})
			return
		}

		c.Next()
	}
}

func extractKey(c *gin.Context) string {
	return c.GetHeader(KeyHeader)
}

// DeviceCredential returns the bearer credential a forwarding device sends in
// the Authorization header.
func DeviceCredential(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	scheme, credential, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(credential)
}
