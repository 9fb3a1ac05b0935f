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


// Package batch coordinates county-level ingestion runs.
//
// The Coordinator fans out one independent child job per selected
// county, waits on each child's terminal status with a single bounded
// retry, aggregates success/failure without aborting on individual
// child errors, persists run-scoped scratch state, and pushes the
// final status to an external sink on a best-effort basis.
//
// A run never returns an error: every failure mode is encoded in the
// returned Result. Side-channel outcomes (sink push, scratch cleanup)
// are reported separately in Result.Advisory so they can never be
// confused with the operation outcome.
package batch
