package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/nvr-ai/vehicle-vision/util"
)

// InputType represents the type of input being processed
type InputType int

const (
	InputImage InputType = iota
	InputDirectory
)

// InputConfig holds the input configuration
type InputConfig struct {
	Type InputType
	Path string
}

// validateInputFlags checks that exactly one input was given.
func validateInputFlags(imagePath, dirPath string) (*InputConfig, error) {
	if imagePath != "" && dirPath != "" {
		return nil, fmt.Errorf("cannot specify both -image and -dir flags")
	}
	if imagePath == "" && dirPath == "" {
		return nil, fmt.Errorf("one of -image or -dir is required")
	}

	if imagePath != "" {
		if _, err := os.Stat(imagePath); os.IsNotExist(err) {
			return nil, fmt.Errorf("file not found: %s", imagePath)
		}
		if !util.IsImageFile(imagePath) {
			return nil, fmt.Errorf("unsupported file extension: %s", filepath.Ext(imagePath))
		}
		return &InputConfig{Type: InputImage, Path: imagePath}, nil
	}

	info, err := os.Stat(dirPath)
	if err != nil {
		return nil, fmt.Errorf("directory not found: %s", dirPath)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dirPath)
	}
	return &InputConfig{Type: InputDirectory, Path: dirPath}, nil
}

// loadInputs reads the configured input files.
func loadInputs(in *InputConfig) ([]util.ImageFile, error) {
	if in.Type == InputImage {
		f, err := util.LoadImageFile(in.Path)
		if err != nil {
			return nil, err
		}
		return []util.ImageFile{*f}, nil
	}

	files, err := util.LoadDirectoryImageFiles(in.Path)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no image files in %s", in.Path)
	}
	return files, nil
}
