package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strings"
)

// OOXML documents are zip archives of XML parts. Text lives in <w:t>
// runs for DOCX and <a:t> runs for PPTX; paragraph boundaries become
// newlines.

func extractDocx(data []byte) (string, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("not a valid DOCX archive: %w", err)
	}

	for _, file := range reader.File {
		if file.Name == "word/document.xml" {
			content, err := readZipFile(file)
			if err != nil {
				return "", err
			}
			return parseOOXMLText(content, "t", "p")
		}
	}

	return "", fmt.Errorf("word/document.xml not found in archive")
}

func extractPptx(data []byte) (string, int, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", 0, fmt.Errorf("not a valid PPTX archive: %w", err)
	}

	type slide struct {
		num  int
		file *zip.File
	}
	var slides []slide
	for _, file := range reader.File {
		var num int
		if _, err := fmt.Sscanf(file.Name, "ppt/slides/slide%d.xml", &num); err == nil {
			slides = append(slides, slide{num: num, file: file})
		}
	}
	if len(slides) == 0 {
		return "", 0, fmt.Errorf("no slides found in archive")
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].num < slides[j].num })

	var builder strings.Builder
	for i, sl := range slides {
		content, err := readZipFile(sl.file)
		if err != nil {
			return "", 0, err
		}
		text, err := parseOOXMLText(content, "t", "p")
		if err != nil {
			return "", 0, err
		}
		if i > 0 {
			builder.WriteString("\n\n")
		}
		builder.WriteString(text)
	}

	return builder.String(), len(slides), nil
}

func readZipFile(file *zip.File) ([]byte, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", file.Name, err)
	}
	defer rc.Close()

	content, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", file.Name, err)
	}
	return content, nil
}

// parseOOXMLText streams the XML and collects character data inside
// text elements, inserting newlines at paragraph ends.
func parseOOXMLText(content []byte, textLocal, paraLocal string) (string, error) {
	decoder := xml.NewDecoder(bytes.NewReader(content))
	var builder strings.Builder
	inText := false

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("XML parse error: %w", err)
		}

		switch t := token.(type) {
		case xml.StartElement:
			if t.Name.Local == textLocal {
				inText = true
			}
		case xml.EndElement:
			if t.Name.Local == textLocal {
				inText = false
			}
			if t.Name.Local == paraLocal {
				builder.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				builder.Write(t)
			}
		}
	}

	return strings.TrimSpace(builder.String()), nil
}
