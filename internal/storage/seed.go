/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"rangecard/internal/domain"
)

// maxSeedBytes bounds a seed download; cards with embedded images stay well below.
const maxSeedBytes = 32 << 20

// Seed describes where the first-run card comes from.
type Seed struct {
	// Source is an http(s) URL or a local file path. Empty disables seeding.
	Source string
	// Token is sent as a bearer token to URL sources when set.
	Token   string
	Timeout time.Duration
	Client  *http.Client
}

var ErrNoSeed = errors.New("no seed source configured")

// Fetch loads and validates the seed card.
func (s Seed) Fetch(ctx context.Context) (domain.Card, error) {
	src := strings.TrimSpace(s.Source)
	if src == "" {
		return domain.Card{}, ErrNoSeed
	}
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	var (
		data []byte
		err  error
	)
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		data, err = s.download(ctx, src)
	} else {
		data, err = os.ReadFile(src)
	}
	if err != nil {
		return domain.Card{}, fmt.Errorf("read seed: %w", err)
	}
	return ImportCard(data)
}

func (s Seed) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if s.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("seed status %s", resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxSeedBytes))
}
