package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/go-git/go-billy/v5/util"
)

// hashPath digests a file's content, or a directory's structure and
// content for directory-backed source formats (UFO, glyphspackage).
func (c *Cache) hashPath(path string) (string, error) {
	fi, err := c.fs.Stat(path)
	if err != nil {
		return "", err
	}
	if fi.IsDir() {
		return c.hashDir(path)
	}
	return c.hashFile(path)
}

func (c *Cache) hashFile(path string) (string, error) {
	f, err := c.fs.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// hashDir walks the directory in lexical order, folding each file's
// relative path and content digest into one running digest. Renames and
// content edits both change it; the result does not depend on filesystem
// metadata like mtimes.
func (c *Cache) hashDir(root string) (string, error) {
	h := sha256.New()
	err := util.Walk(c.fs, root, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			return nil
		}
		digest, err := c.hashFile(path)
		if err != nil {
			return err
		}
		fmt.Fprintf(h, "%s\x00%s\n", path, digest)
		return nil
	})
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
