/*
 * Copyright 2024 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package hack holds the one zero-copy conversion the heaptag package's
// diagnostic dump needs: turning the []byte built up while walking the
// free list into the string DumpFreeList returns, without a second copy
// of a buffer that may already be several KB for a long free list.
package hack

import "unsafe"

// ByteSliceToString converts []byte to string without copy. The caller
// must not mutate b after the conversion.
func ByteSliceToString(b []byte) string {
	return *(*string)(unsafe.Pointer(&b))
}
