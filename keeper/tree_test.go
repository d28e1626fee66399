/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package keeper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParentPath(t *testing.T) {
	cases := map[string]string{
		"/":        "/",
		"/a":       "/",
		"/a/b":     "/a",
		"/a/b/c":   "/a/b",
		"/a0000":   "/",
		"/a/b0001": "/a",
	}
	for path, parent := range cases {
		assert.Equal(t, parent, parentPath(path), path)
	}
}

func TestBaseName(t *testing.T) {
	assert.Equal(t, "", baseName("/"))
	assert.Equal(t, "a", baseName("/a"))
	assert.Equal(t, "c", baseName("/a/b/c"))
}

func TestTreeStartsWithRoot(t *testing.T) {
	tr := NewTree()
	require.NotNil(t, tr.Get("/"))
	assert.Equal(t, 1, tr.Len())
	assert.Empty(t, tr.Children("/"))
}

func TestTreeChildrenPrefixSafety(t *testing.T) {
	tr := NewTree()
	tr.Insert("/a", newNode())
	tr.Insert("/ab", newNode())
	tr.Insert("/a/x", newNode())

	assert.Equal(t, []string{"x"}, tr.Children("/a"))
	assert.Equal(t, []string{"a", "ab"}, tr.Children("/"))
	assert.Empty(t, tr.Children("/ab"))
}

func TestTreeChildrenSkipsGrandchildren(t *testing.T) {
	tr := NewTree()
	tr.Insert("/a", newNode())
	tr.Insert("/a/b", newNode())
	tr.Insert("/a/b/c", newNode())
	tr.Insert("/a/z", newNode())

	assert.Equal(t, []string{"b", "z"}, tr.Children("/a"))
}

func TestTreeDelete(t *testing.T) {
	tr := NewTree()
	tr.Insert("/a", newNode())
	require.NotNil(t, tr.Get("/a"))
	tr.Delete("/a")
	assert.Nil(t, tr.Get("/a"))
	assert.Equal(t, 1, tr.Len())
}
