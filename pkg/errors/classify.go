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

package errors

// ErrorType implements ErrorClassifier.
func (e *ValidationError) ErrorType() string { return "validation" }

// IsRetryable implements ErrorClassifier. Validation failures require a
// document change, not a retry.
func (e *ValidationError) IsRetryable() bool { return false }

// ErrorType implements ErrorClassifier.
func (e *NotFoundError) ErrorType() string { return "not_found" }

// IsRetryable implements ErrorClassifier.
func (e *NotFoundError) IsRetryable() bool { return false }

// ErrorType implements ErrorClassifier.
func (e *ConfigError) ErrorType() string { return "configuration" }

// IsRetryable implements ErrorClassifier.
func (e *ConfigError) IsRetryable() bool { return false }

// ErrorType implements ErrorClassifier.
func (e *TimeoutError) ErrorType() string { return "timeout" }

// IsRetryable implements ErrorClassifier. A timed-out action is safe to
// re-run; the runner itself never retries automatically, but on_error
// branches may route to a retry step.
func (e *TimeoutError) IsRetryable() bool { return true }

// ErrorType implements ErrorClassifier.
func (e *ActionError) ErrorType() string { return "action" }

// IsRetryable implements ErrorClassifier.
func (e *ActionError) IsRetryable() bool { return false }

// ErrorType implements ErrorClassifier.
func (e *CaptureError) ErrorType() string { return "capture" }

// IsRetryable implements ErrorClassifier. Capture failures are always
// treated as transient per-file skips; the action continues regardless.
func (e *CaptureError) IsRetryable() bool { return true }

// ErrorType implements ErrorClassifier.
func (e *ReportError) ErrorType() string { return "report" }

// IsRetryable implements ErrorClassifier.
func (e *ReportError) IsRetryable() bool { return false }

// ErrorType implements ErrorClassifier.
func (e *CryptoError) ErrorType() string { return "crypto" }

// IsRetryable implements ErrorClassifier.
func (e *CryptoError) IsRetryable() bool { return false }

// IsUserVisible reports that validation errors are shown to users.
// ValidationError carries its suggestion in the exported Suggestion
// field, so it has no Suggestion method and does not satisfy
// UserVisibleError.
func (e *ValidationError) IsUserVisible() bool { return true }

// UserMessage returns the validation message.
func (e *ValidationError) UserMessage() string { return e.Message }

// IsUserVisible implements UserVisibleError.
func (e *ConfigError) IsUserVisible() bool { return true }

// UserMessage implements UserVisibleError.
func (e *ConfigError) UserMessage() string { return e.Reason }

// Suggestion implements UserVisibleError.
func (e *ConfigError) Suggestion() string { return "" }
