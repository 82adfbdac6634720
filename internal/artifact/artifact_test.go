// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package artifact

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZipRoundTripKeepsOrder(t *testing.T) {
	z, err := Zip("bundle.zip", []Artifact{
		New("page_2.pdf", MIMEPDF, []byte("two")),
		New("page_1.pdf", MIMEPDF, []byte("one")),
	})
	require.NoError(t, err)
	assert.Equal(t, MIMEZip, z.MIME)
	assert.Equal(t, "bundle.zip", z.Name)

	files, err := Unzip(z.Data)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "page_2.pdf", files[0].Name)
	assert.Equal(t, []byte("one"), files[1].Data)
}

func TestZipRejectsDuplicates(t *testing.T) {
	_, err := Zip("x.zip", []Artifact{New("a", "", nil), New("a", "", nil)})
	assert.Error(t, err)
}

func TestSave(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "outputs")
	a := New("../../escape.txt", MIMEText, []byte("hi"))

	path, err := a.Save(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "escape.txt"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hi", string(data))
	assert.Equal(t, 2, a.Size())
}
