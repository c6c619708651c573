// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

/*
Package config provides a simple way to manage the configuration of the pointer analysis.

Use [Load](filename) to load a configuration from a specific filename, or [LoadFromBytes] when the content has
already been read.

Use [SetGlobalConfig](filename) to set filename as the global config, and then [LoadGlobal]() to load the global config.

A config file should be in yaml format. The top-level fields can be any of the fields defined in the Config
struct type. For example, a valid config file is as follows:

	log-level: 4
	field-limit: 128
	pts-discipline: plain
	lazy-cycle-detection: true
	write-cache: results/pts.cache.zst
	report:
	  - entity: "^main\\."
	  - kind: object

# Precision options

Options that trade precision for speed are field-sensitive, field-limit, first-field-eq-base and ind-call-limit. The
solver does not fail when a limit is reached: objects over the field limit are field-insensitive and indirect calls
beyond the call limit are not resolved. Both are reported as warnings.
*/
package config
