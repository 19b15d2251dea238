// Copyright 2025 BINARY Members
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

package tidetxn

import "github.com/tidetxn/tidetxn/pkg/logger"

// getLogger is the single indirection point between this package and the
// process-wide logger facade, so call sites read naturally (getLogger()
// vs. the package-qualified logger.GetLogger()) and so tests can swap the
// logger without touching every file that logs.
func getLogger() logger.Logger {
	return logger.GetLogger()
}
