package main

import (
	"fmt"
	"os"

	"pixvault/internal/api"
	"pixvault/internal/format"
)

var outputFormatter format.Formatter = format.JSONFormatter{}

func selectOutputFormat(name string) error {
	formatter, err := format.ForName(name)
	if err != nil {
		return err
	}
	outputFormatter = formatter
	return nil
}

func writeJSON(payload any) error {
	return outputFormatter.Write(os.Stdout, payload)
}

func writePlain(format string, args ...any) error {
	_, err := fmt.Fprintf(os.Stdout, format, args...)
	return err
}

func writeFileDetail(file api.FileMetadata) error {
	if err := writePlain("id:           %s\n", file.ID); err != nil {
		return err
	}
	if err := writePlain("name:         %s\n", file.Name); err != nil {
		return err
	}
	if err := writePlain("size:         %d\n", file.Size); err != nil {
		return err
	}
	if err := writePlain("content_type: %s\n", file.ContentType); err != nil {
		return err
	}
	if file.OwnerID != "" {
		if err := writePlain("owner:        %s\n", file.OwnerID); err != nil {
			return err
		}
	}
	if file.SHA256 != "" {
		if err := writePlain("sha256:       %s\n", file.SHA256); err != nil {
			return err
		}
	}
	if err := writePlain("created_at:   %s\n", file.CreatedAt); err != nil {
		return err
	}
	for key, value := range file.Tags {
		if err := writePlain("tag %s: %v\n", key, value); err != nil {
			return err
		}
	}
	return nil
}

func writeFileList(files []api.FileMetadata) error {
	for _, file := range files {
		if err := writePlain("%s  %10d  %-24s  %s\n", file.ID, file.Size, file.ContentType, file.Name); err != nil {
			return err
		}
	}
	return nil
}
