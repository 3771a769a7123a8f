// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package llm

import (
	"context"
	"net/http"

	"golang.org/x/oauth2/clientcredentials"
)

// OAuthConfig holds client credentials for a model gateway that sits in
// front of the model server.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	Scopes       []string
}

// Enabled reports whether enough is set to fetch tokens.
func (o OAuthConfig) Enabled() bool {
	return o.ClientID != "" && o.TokenURL != ""
}

// HTTPClient returns a client that attaches a client-credentials token to
// every request, or nil when OAuth is not configured.
func (o OAuthConfig) HTTPClient(ctx context.Context) *http.Client {
	if !o.Enabled() {
		return nil
	}
	creds := &clientcredentials.Config{
		ClientID:     o.ClientID,
		ClientSecret: o.ClientSecret,
		TokenURL:     o.TokenURL,
		Scopes:       o.Scopes,
	}
	return creds.Client(ctx)
}
