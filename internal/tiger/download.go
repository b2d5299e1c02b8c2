package tiger

import (
	"archive/zip"
	"context"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/tract-equity/internal/fetcher"
)

// Shapefile members kept when unpacking an archive.
var shapefileParts = map[string]bool{
	".shp": true,
	".shx": true,
	".dbf": true,
	".prj": true,
	".cpg": true,
}

// FetchShapefile makes sure the TIGER/Line archive at rawURL is present in
// dir, unpacks its shapefile members next to it and returns the .shp path.
// An archive already in dir is not fetched again.
func FetchShapefile(ctx context.Context, f fetcher.Fetcher, rawURL, dir string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", eris.Wrapf(err, "tiger: parse %q", rawURL)
	}
	archive := path.Base(u.Path)
	if !strings.EqualFold(path.Ext(archive), ".zip") {
		return "", eris.Errorf("tiger: %q is not a zip archive", rawURL)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", eris.Wrapf(err, "tiger: create %s", dir)
	}
	zipPath := filepath.Join(dir, archive)

	log := zap.L().With(zap.String("component", "tiger.download"), zap.String("archive", archive))
	if info, err := os.Stat(zipPath); err == nil && info.Size() > 0 {
		log.Debug("reusing downloaded archive")
	} else {
		tmp := zipPath + ".part"
		n, err := f.DownloadToFile(ctx, rawURL, tmp)
		if err != nil {
			_ = os.Remove(tmp)
			return "", eris.Wrapf(err, "tiger: download %s", archive)
		}
		if err := os.Rename(tmp, zipPath); err != nil {
			return "", eris.Wrapf(err, "tiger: save %s", archive)
		}
		log.Info("archive downloaded", zap.Int64("bytes", n))
	}

	return unpackShapefile(zipPath, strings.TrimSuffix(zipPath, path.Ext(zipPath)))
}

// unpackShapefile writes the shapefile members of zipPath into dir, flattening
// any folders, and returns the path of the .shp member.
func unpackShapefile(zipPath, dir string) (string, error) {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return "", eris.Wrapf(err, "tiger: open %s", zipPath)
	}
	defer zr.Close() //nolint:errcheck

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", eris.Wrapf(err, "tiger: create %s", dir)
	}

	var shpPath string
	for _, member := range zr.File {
		name := filepath.Base(member.Name)
		ext := strings.ToLower(filepath.Ext(name))
		if member.FileInfo().IsDir() || !shapefileParts[ext] {
			continue
		}
		dest := filepath.Join(dir, name)
		if err := writeMember(member, dest); err != nil {
			return "", err
		}
		if ext == ".shp" && shpPath == "" {
			shpPath = dest
		}
	}

	if shpPath == "" {
		return "", eris.Errorf("tiger: %s has no .shp member", filepath.Base(zipPath))
	}
	return shpPath, nil
}

func writeMember(member *zip.File, dest string) error {
	src, err := member.Open()
	if err != nil {
		return eris.Wrapf(err, "tiger: open member %s", member.Name)
	}
	defer src.Close() //nolint:errcheck

	out, err := os.Create(dest)
	if err != nil {
		return eris.Wrapf(err, "tiger: create %s", dest)
	}
	if _, err := io.Copy(out, src); err != nil {
		_ = out.Close()
		return eris.Wrapf(err, "tiger: unpack %s", member.Name)
	}
	return eris.Wrapf(out.Close(), "tiger: close %s", dest)
}
