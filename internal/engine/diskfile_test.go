// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package engine

import (
	"crypto/rand"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func randomBytesN(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	return b, err
}

func TestWriteBlockFile(t *testing.T) {
	// Setup
	l := zerolog.Nop()
	name := filepath.Join(t.TempDir(), "ab", "block.blk")
	data, err := randomBytesN(20)
	if err != nil {
		t.Fatal(err)
	}

	// Test
	err = writeBlockFile(l, name, data)

	// Assert
	if err != nil {
		t.Fatal(err)
	}

	fileContent, err := os.ReadFile(name)
	if err != nil {
		t.Fatal(err)
	} else if string(fileContent) != string(data) {
		t.Fatalf("writeBlockFile corrupted data: got %v, expected %v", fileContent, data)
	}

	// Rewriting truncates.
	if err := writeBlockFile(l, name, data[:5]); err != nil {
		t.Fatal(err)
	}
	fileContent, err = os.ReadFile(name)
	if err != nil {
		t.Fatal(err)
	} else if string(fileContent) != string(data[:5]) {
		t.Fatalf("got %v, expected %v", fileContent, data[:5])
	}
}

func TestReadFromStart(t *testing.T) {
	// Setup
	name := filepath.Join(t.TempDir(), "block.blk")
	data, err := randomBytesN(20)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(name, data, 0644); err != nil {
		t.Fatal(err)
	}

	file, err := os.Open(name)
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()

	// Test
	got, err := readFromStart(file)
	if err != nil {
		t.Fatal(err)
	} else if string(got) != string(data) {
		t.Fatalf("got %v, expected %v", got, data)
	}
}

func TestReadBlockFile(t *testing.T) {
	name := filepath.Join(t.TempDir(), "block.blk")
	data, err := randomBytesN(20)
	if err != nil {
		t.Fatal(err)
	}
	if err := writeBlockFile(zerolog.Nop(), name, data); err != nil {
		t.Fatal(err)
	}

	got, err := readBlockFile(name, 20)
	if err != nil {
		t.Fatal(err)
	} else if string(got) != string(data) {
		t.Fatalf("got %v, expected %v", got, data)
	}

	if _, err := readBlockFile(name, 21); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected unexpected EOF for a truncated block, got %v", err)
	}

	dst := make([]byte, 5)
	n, err := readBlockFileAt(name, dst, 10)
	if err != nil {
		t.Fatal(err)
	} else if n != 5 || string(dst) != string(data[10:15]) {
		t.Fatalf("got %v, expected %v", dst, data[10:15])
	}

	if _, err := readBlockFileAt(name, make([]byte, 15), 10); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected unexpected EOF for a short read, got %v", err)
	}
}

func TestDropBlockFile(t *testing.T) {
	l := zerolog.Nop()
	name := filepath.Join(t.TempDir(), "block.blk")
	if err := writeBlockFile(l, name, []byte("data")); err != nil {
		t.Fatal(err)
	}

	dropBlockFile(l, name)
	if _, err := os.Stat(name); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected file to be removed, got %v", err)
	}

	// Dropping twice is harmless.
	dropBlockFile(l, name)

	if _, err := readBlockFile(name, 4); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected not exist, got %v", err)
	}
}
