package updater

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/skillkit-labs/skillkit/internal/branding"
)

// checksumsAsset is the release asset listing archive digests.
const checksumsAsset = "checksums.txt"

// DownloadBinary downloads the asset for the current platform into destDir
// and returns the archive path.
func (u *Updater) DownloadBinary(ctx context.Context, release *Release, destDir string) (string, error) {
	asset, err := SelectAssetForPlatform(release.Assets)
	if err != nil {
		return "", err
	}

	destPath := filepath.Join(destDir, asset.Name)
	err = withRetry(ctx, u.retry, "download", func() error {
		return u.download(ctx, asset.DownloadURL, destPath)
	})
	if err != nil {
		return "", fmt.Errorf("downloading %s: %w", asset.Name, err)
	}
	return destPath, nil
}

func (u *Updater) download(ctx context.Context, url, destPath string) error {
	resp, err := u.get(ctx, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	f, err := os.Create(destPath)
	if err != nil {
		return permanent(fmt.Errorf("creating download file: %w", err))
	}
	defer f.Close()

	var src io.Reader = resp.Body
	if u.progress != nil && resp.ContentLength > 0 {
		src = &progressReader{r: resp.Body, total: resp.ContentLength, w: u.progress, last: -1}
		defer fmt.Fprintln(u.progress)
	}
	if _, err := io.Copy(f, src); err != nil {
		return fmt.Errorf("reading download stream: %w", err)
	}
	return f.Close()
}

func (u *Updater) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, permanent(fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("User-Agent", userAgent())

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		err := fmt.Errorf("%s returned status %d", url, resp.StatusCode)
		if resp.StatusCode < 500 {
			return nil, permanent(err)
		}
		return nil, err
	}
	return resp, nil
}

type progressReader struct {
	r     io.Reader
	w     io.Writer
	total int64
	read  int64
	last  int
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += int64(n)
	if pct := int(p.read * 100 / p.total); pct != p.last {
		fmt.Fprintf(p.w, "\rDownloading... %d%%", pct)
		p.last = pct
	}
	return n, err
}

// VerifyChecksum downloads checksums.txt from the release and verifies the archive.
func (u *Updater) VerifyChecksum(ctx context.Context, release *Release, archivePath string) error {
	var sums *Asset
	for i := range release.Assets {
		if release.Assets[i].Name == checksumsAsset {
			sums = &release.Assets[i]
			break
		}
	}
	if sums == nil {
		return fmt.Errorf("%s not found in release assets", checksumsAsset)
	}

	var body []byte
	err := withRetry(ctx, u.retry, "checksum download", func() error {
		resp, err := u.get(ctx, sums.DownloadURL)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		body, err = io.ReadAll(resp.Body)
		return err
	})
	if err != nil {
		return fmt.Errorf("downloading checksums: %w", err)
	}

	archiveName := filepath.Base(archivePath)
	expected := ""
	for _, line := range strings.Split(string(body), "\n") {
		parts := strings.Fields(line)
		if len(parts) == 2 && strings.TrimPrefix(parts[1], "*") == archiveName {
			expected = parts[0]
			break
		}
	}
	if expected == "" {
		return fmt.Errorf("no checksum found for %s in %s", archiveName, checksumsAsset)
	}

	actual, err := fileSHA256(archivePath)
	if err != nil {
		return err
	}
	if !strings.EqualFold(actual, expected) {
		return fmt.Errorf("checksum mismatch: expected %s, got %s", expected, actual)
	}
	return nil
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening archive for checksum: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("computing checksum: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ExtractBinary extracts the skillkit binary from a tar.gz or zip archive
// and returns its path.
func ExtractBinary(archivePath, destDir string) (string, error) {
	if strings.HasSuffix(archivePath, ".zip") {
		return extractFromZip(archivePath, destDir)
	}
	return extractFromTarGz(archivePath, destDir)
}

func isBinaryEntry(name string) bool {
	base := filepath.Base(name)
	return base == branding.CLIName() || base == branding.CLIName()+".exe"
}

func writeBinary(r io.Reader, destDir, name string) (string, error) {
	destPath := filepath.Join(destDir, filepath.Base(name))
	out, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0755)
	if err != nil {
		return "", fmt.Errorf("creating binary file: %w", err)
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return "", fmt.Errorf("extracting binary: %w", err)
	}
	return destPath, out.Close()
}

func extractFromTarGz(archivePath, destDir string) (string, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return "", fmt.Errorf("opening archive: %w", err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return "", fmt.Errorf("creating gzip reader: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("reading tar entry: %w", err)
		}
		if hdr.Typeflag == tar.TypeReg && isBinaryEntry(hdr.Name) {
			return writeBinary(tr, destDir, hdr.Name)
		}
	}
	return "", fmt.Errorf("%s binary not found in archive", branding.CLIName())
}

func extractFromZip(archivePath, destDir string) (string, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return "", fmt.Errorf("opening zip archive: %w", err)
	}
	defer r.Close()

	for _, f := range r.File {
		if !isBinaryEntry(f.Name) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("opening zip entry: %w", err)
		}
		path, err := writeBinary(rc, destDir, f.Name)
		rc.Close()
		return path, err
	}
	return "", fmt.Errorf("%s binary not found in zip archive", branding.CLIName())
}
