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
	"strings"

	"github.com/google/btree"
)

const rootPath = "/"

const treeDegree = 32

// parentPath returns the parent of an absolute path; the parent of "/" is "/".
// Paths never end in '/' except the root, so the byte after the cut is the
// base name.
func parentPath(path string) string {
	idx := strings.LastIndexByte(path, '/')
	if idx > 0 {
		return path[:idx]
	}
	return rootPath
}

// baseName returns the suffix of an absolute path after the last '/'.
func baseName(path string) string {
	return path[strings.LastIndexByte(path, '/')+1:]
}

type treeEntry struct {
	path string
	node *Node
}

// Tree is the ordered path -> node container. Ordering is lexicographic by
// path, which makes the direct children of a node a contiguous range.
type Tree struct {
	bt *btree.BTreeG[*treeEntry]
}

func newBareTree() *Tree {
	return &Tree{
		bt: btree.NewG[*treeEntry](treeDegree, func(a, b *treeEntry) bool { return a.path < b.path }),
	}
}

// NewTree returns a tree holding only the root node.
func NewTree() *Tree {
	t := newBareTree()
	t.Insert(rootPath, newNode())
	return t
}

// Get returns the node at path, or nil.
func (t *Tree) Get(path string) *Node {
	e, ok := t.bt.Get(&treeEntry{path: path})
	if !ok {
		return nil
	}
	return e.node
}

func (t *Tree) Insert(path string, n *Node) {
	t.bt.ReplaceOrInsert(&treeEntry{path: path, node: n})
}

func (t *Tree) Delete(path string) {
	t.bt.Delete(&treeEntry{path: path})
}

func (t *Tree) Len() int {
	return t.bt.Len()
}

// Children returns the base names of the direct children of path in tree
// order. The scan starts past path+"/" and stops at the first key outside the
// prefix, so siblings sharing the textual prefix (e.g. "/ab" next to "/a") are
// never taken for children.
func (t *Tree) Children(path string) []string {
	prefix := path
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	names := []string{}
	t.bt.AscendGreaterOrEqual(&treeEntry{path: prefix}, func(e *treeEntry) bool {
		if e.path == prefix || !strings.HasPrefix(e.path, prefix) {
			return e.path == prefix
		}
		if parentPath(e.path) == path {
			names = append(names, baseName(e.path))
		}
		return true
	})
	return names
}

// Ascend visits every (path, node) pair in tree order until f returns false.
func (t *Tree) Ascend(f func(path string, n *Node) bool) {
	t.bt.Ascend(func(e *treeEntry) bool { return f(e.path, e.node) })
}
