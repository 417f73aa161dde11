// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package run

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_getPlan(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		url      string
		wantErr  error
		wantName string
	}{
		{
			name:    "empty url returns error",
			url:     "",
			wantErr: ErrGetConfigFile,
		},
		{
			name:    "getter fails",
			url:     "git::http://notexist//file.yaml",
			wantErr: ErrGetConfigFile,
		},
		{
			name:    "missing local file",
			url:     "./testdata/missing.yaml",
			wantErr: ErrGetConfigFile,
		},
		{
			name:    "url without subdirectory",
			url:     "https://example.com/deploy.yaml",
			wantErr: ErrGetConfigFile,
		},
		{
			name:     "local file",
			url:      "./testdata/plan.yaml",
			wantName: "smoke",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := getPlan(context.Background(), tc.url)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				assert.Nil(t, p)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.wantName, p.Name)
		})
	}
}

func Test_getPlan_LocalMachinesFileRelativeToPlan(t *testing.T) {
	p, err := getPlan(context.Background(), "./testdata/fleet.yaml")
	require.NoError(t, err)

	machines, err := p.ResolveMachines()
	require.NoError(t, err)
	assert.Equal(t, []string{"web-1", "web-2"}, machines)
}

func Test_splitFileNameFromGetterURL(t *testing.T) {
	testCases := []struct {
		url      string
		wantURL  string
		wantFile string
	}{
		{
			url:      "git::https://github.com/org/repo//plans/deploy.yaml?ref=v1.0.0",
			wantURL:  "git::https://github.com/org/repo//plans?ref=v1.0.0",
			wantFile: "deploy.yaml",
		},
		{
			url:      "git::https://github.com/org/repo//deploy.hcl",
			wantURL:  "git::https://github.com/org/repo",
			wantFile: "deploy.hcl",
		},
		{
			url: "https://example.com/deploy.yaml",
		},
		{
			url: "git::https://github.com/org/repo//plans/",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.url, func(t *testing.T) {
			gotURL, gotFile := splitFileNameFromGetterURL(tc.url)
			assert.Equal(t, tc.wantURL, gotURL)
			assert.Equal(t, tc.wantFile, gotFile)
		})
	}
}
