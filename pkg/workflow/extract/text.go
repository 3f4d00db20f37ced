// Copyright 2025 Tom Barlow
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

package extract

import (
	"regexp"
	"strings"
)

var fencedBlockRe = regexp.MustCompile("(?i)```(?:json)?\\s*([\\s\\S]*?)```")

// ExtractJSON locates the JSON candidate in a model response. A fenced code
// block with content wins; otherwise the widest brace-delimited span is
// taken. It reports false when neither is present. No parsing happens here.
func ExtractJSON(response string) (string, bool) {
	if m := fencedBlockRe.FindStringSubmatch(response); m != nil {
		if body := strings.TrimSpace(m[1]); body != "" {
			return body, true
		}
	}

	start := strings.IndexByte(response, '{')
	end := strings.LastIndexByte(response, '}')
	if start < 0 || end <= start {
		return "", false
	}
	return response[start : end+1], true
}
