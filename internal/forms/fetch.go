package forms

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/veform/veform/internal/models"
)

// fetchTimeout bounds one form download.
const fetchTimeout = 15 * time.Second

// Fetch downloads a form definition from {baseURL}/form/{id} and validates
// it.
func Fetch(ctx context.Context, baseURL, id string) (*models.Form, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()
	url := fmt.Sprintf("%s/form/%s", baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build form request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch form %s: %w", id, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch form %s: unexpected status %d", id, resp.StatusCode)
	}
	return decode(json.NewDecoder(resp.Body))
}

// LoadFile reads a form definition from a local JSON file and validates it.
func LoadFile(path string) (*models.Form, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open form file: %w", err)
	}
	defer f.Close()
	return decode(json.NewDecoder(f))
}

func decode(dec *json.Decoder) (*models.Form, error) {
	var form models.Form
	if err := dec.Decode(&form); err != nil {
		return nil, fmt.Errorf("decode form: %w", err)
	}
	if err := form.Validate(); err != nil {
		return nil, fmt.Errorf("invalid form: %w", err)
	}
	return &form, nil
}
