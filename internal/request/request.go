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

package request

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

var client = &http.Client{Timeout: 10 * time.Second}

// ToJsonReq serializes payload into a buffer usable as a request body.
func ToJsonReq(payload interface{}) (*bytes.Buffer, error) {
	c, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return bytes.NewBuffer(c), nil
}

// Call sends req as JSON. A non 2xx status is an error. When response is not
// nil the body is decoded into it; otherwise the body is discarded, which suits
// endpoints such as Slack webhooks that answer with plain text.
//
// Parameters:
// - req *http.Request: The prepared request.
// - response interface{}: Optional target for the decoded JSON body.
//
// Returns:
// - *http.Response: The raw response.
// - error: A transport, status or decoding error.
func Call(req *http.Request, response interface{}) (*http.Response, error) {
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return resp, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return resp, fmt.Errorf("%s %s returned %d: %s", req.Method, req.URL.Host, resp.StatusCode, bytes.TrimSpace(body))
	}

	if response == nil {
		_, err = io.Copy(io.Discard, resp.Body)
		return resp, err
	}
	return resp, json.NewDecoder(resp.Body).Decode(response)
}
