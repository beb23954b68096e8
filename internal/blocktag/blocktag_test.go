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

package blocktag

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

// layout builds a left fencepost, one interior block of size interiorSize,
// and a right fencepost in a freshly allocated byte slice — the same shape
// arena.New produces, laid out by hand so the package can be tested in
// isolation from arena/osmem.
func layout(t *testing.T, interiorSize uintptr) (mem []byte, left *Footer, head *Header, right *Header) {
	t.Helper()
	overhead := 2*HeaderSize + 2*FooterSize
	mem = make([]byte, interiorSize+overhead)
	base := unsafe.Pointer(&mem[0])

	left = FooterAt(base)
	WriteFooter(left, 0, Used)

	head = HeaderAt(unsafe.Add(base, FooterSize))
	WriteHeader(head, interiorSize, Free)
	WriteFooter(FooterOf(head), interiorSize, Free)

	right = HeaderFollowing(FooterOf(head))
	WriteHeader(right, 0, Used)

	return mem, left, head, right
}

func TestFooterOfRoundTrips(t *testing.T) {
	_, _, head, _ := layout(t, 256)
	foot := FooterOf(head)
	require.Equal(t, head.Size, foot.Size)
	require.Equal(t, head.Status, foot.Status)
}

func TestFooterPrecedingReachesLeftFencepost(t *testing.T) {
	_, left, head, _ := layout(t, 256)
	require.Same(t, left, FooterPreceding(head))
	require.EqualValues(t, 0, left.Size)
	require.Equal(t, Used, left.Status)
}

func TestHeaderFollowingReachesRightFencepost(t *testing.T) {
	_, _, head, right := layout(t, 256)
	require.Same(t, right, HeaderFollowing(FooterOf(head)))
	require.EqualValues(t, 0, right.Size)
	require.Equal(t, Used, right.Status)
}

func TestHeaderOfLeftNeighbor(t *testing.T) {
	_, _, head, _ := layout(t, 256)

	// Split head by hand into a left used block and a right free block,
	// then confirm the right block's left-neighbor lookup finds the left
	// block's header using only the left block's footer.
	leftTotal := uintptr(64)
	residual := head.Size - leftTotal

	WriteHeader(head, leftTotal, Used)
	WriteFooter(FooterOf(head), leftTotal, Used)

	rightBlock := HeaderFollowing(FooterOf(head))
	WriteHeader(rightBlock, residual, Free)
	WriteFooter(FooterOf(rightBlock), residual, Free)

	leftFoot := FooterPreceding(rightBlock)
	require.Same(t, FooterOf(head), leftFoot)

	recovered := HeaderOfLeftNeighbor(rightBlock, leftFoot)
	require.Same(t, head, recovered)
	require.EqualValues(t, leftTotal, recovered.Size)
}

func TestPayloadRoundTrip(t *testing.T) {
	_, _, head, _ := layout(t, 256)
	WriteHeader(head, head.Size, Used)

	payload := PayloadOf(head)
	require.Same(t, head, HeaderOfPayload(payload))
}

func TestBytesSpansHeaderToFooter(t *testing.T) {
	_, _, head, _ := layout(t, 256)
	b := Bytes(head)
	require.Len(t, b, int(head.Size))
}

func TestStatusString(t *testing.T) {
	require.Equal(t, "FREE", Free.String())
	require.Equal(t, "USED", Used.String())
	require.Equal(t, "SENTINEL", Sentinel.String())
	require.Equal(t, "UNKNOWN", Status(99).String())
}
