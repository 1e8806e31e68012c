package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
)

const maxMultipartMemory = 32 << 20

var strictPolicy = bluemonday.StrictPolicy()

// SanitizeAndCleanInputMiddleware strips markup from every string in a JSON
// body and from multipart or urlencoded form values. Uploaded files are left
// untouched.
func SanitizeAndCleanInputMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost &&
			c.Request.Method != http.MethodPut &&
			c.Request.Method != http.MethodPatch {
			c.Next()
			return
		}

		contentType := c.ContentType()
		switch {
		case contentType == gin.MIMEMultipartPOSTForm:
			if err := c.Request.ParseMultipartForm(maxMultipartMemory); err != nil {
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Request must be multipart/form-data"})
				return
			}
			sanitizeValues(c.Request.MultipartForm.Value)
			sanitizeValues(c.Request.PostForm)
			sanitizeValues(c.Request.Form)
		case contentType == gin.MIMEPOSTForm:
			if err := c.Request.ParseForm(); err != nil {
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid form body"})
				return
			}
			sanitizeValues(c.Request.PostForm)
			sanitizeValues(c.Request.Form)
		case contentType == gin.MIMEJSON || contentType == "":
			if !sanitizeJSONBody(c) {
				return
			}
		}

		c.Next()
	}
}

func sanitizeJSONBody(c *gin.Context) bool {
	if c.Request.Body == nil {
		return true
	}
	buf, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid body"})
		return false
	}
	if len(bytes.TrimSpace(buf)) == 0 {
		c.Request.Body = io.NopCloser(bytes.NewReader(buf))
		return true
	}

	dec := json.NewDecoder(bytes.NewReader(buf))
	dec.UseNumber()
	var body any
	if err := dec.Decode(&body); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Malformed JSON"})
		return false
	}

	newBody, err := json.Marshal(sanitizeValue(body))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Malformed JSON"})
		return false
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(newBody))
	c.Request.ContentLength = int64(len(newBody))
	return true
}

func sanitizeValue(v any) any {
	switch t := v.(type) {
	case string:
		return sanitizeString(t)
	case map[string]any:
		for k, inner := range t {
			t[k] = sanitizeValue(inner)
		}
		return t
	case []any:
		for i, inner := range t {
			t[i] = sanitizeValue(inner)
		}
		return t
	default:
		return v
	}
}

func sanitizeValues(values map[string][]string) {
	for _, vs := range values {
		for i, v := range vs {
			vs[i] = sanitizeString(v)
		}
	}
}

// sanitizeString strips tags. bluemonday escapes what it keeps; ampersands
// and quotes are turned back into plain characters, angle brackets are not.
func sanitizeString(s string) string {
	return entityReplacer.Replace(strictPolicy.Sanitize(s))
}

var entityReplacer = strings.NewReplacer(
	"&amp;", "&",
	"&#39;", "'",
	"&#34;", `"`,
	"&quot;", `"`,
)
