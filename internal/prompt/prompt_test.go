package prompt

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadInt_ReasksUntilValid(t *testing.T) {
	var out bytes.Buffer
	r := NewReader(strings.NewReader("1\nfour\n11\n 4 \n"), &out)

	n, err := r.ReadInt("Number of workers", 2, 10)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, 4, strings.Count(out.String(), "Number of workers (2-10): "))
	assert.Equal(t, 2, strings.Count(out.String(), "Please enter a number between 2 and 10."))
	assert.Contains(t, out.String(), "Please enter a whole number.")
}

func TestReadIntDefault(t *testing.T) {
	var out bytes.Buffer
	r := NewReader(strings.NewReader("\n12\n7\n"), &out)

	n, err := r.ReadIntDefault("Number of workers", 4, 2, 10)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Contains(t, out.String(), "Number of workers (2-10) [4]: ")

	n, err = r.ReadIntDefault("Number of workers", 4, 2, 10)
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.Contains(t, out.String(), "Please enter a number between 2 and 10.")
}

func TestReadInt_EndOfInput(t *testing.T) {
	r := NewReader(strings.NewReader("0\n"), &bytes.Buffer{})

	_, err := r.ReadInt("Number of workers", 2, 10)
	assert.ErrorIs(t, err, ErrNoInput)
}

func TestWaitForEnter(t *testing.T) {
	var out bytes.Buffer
	r := NewReader(strings.NewReader("\n3\n"), &out)

	r.WaitForEnter()
	assert.Contains(t, out.String(), "Press Enter to continue...")

	// the blank line was consumed, the next answer is still readable
	n, err := r.ReadInt("Tasks", 1, 5)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}
