// Copyright 2025 Compliance IQ
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


package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidChunk indicates a Chunk failed validation.
	ErrInvalidChunk = errors.New("invalid chunk")

	// ErrInvalidDocument indicates a Document failed validation.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrEmptyText indicates the Text field is empty.
	ErrEmptyText = errors.New("text cannot be empty")

	// ErrInvalidSourceType indicates an unrecognized SourceType value.
	ErrInvalidSourceType = errors.New("invalid source type")

	// ErrEmptyJurisdictionCode indicates the JurisdictionCode field is empty.
	ErrEmptyJurisdictionCode = errors.New("jurisdiction code cannot be empty")

	// ErrNoTokenCounts indicates a token statistics call received no counts.
	ErrNoTokenCounts = errors.New("no token counts provided")
)
