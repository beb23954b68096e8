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

package osmem

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHeapAcquireLength(t *testing.T) {
	var p Provider = Heap{}
	b := p.Acquire(128)
	require.Len(t, b, 128)
}

func TestHeapAcquireDisjointRegions(t *testing.T) {
	h := Heap{}
	a := h.Acquire(64)
	b := h.Acquire(64)
	require.NotSame(t, &a[0], &b[0])
}

func TestMmapAcquireLength(t *testing.T) {
	var p Provider = Mmap{}
	b := p.Acquire(4096)
	require.Len(t, b, 4096)
}
