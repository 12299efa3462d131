package vision

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// DefaultLabels классы датасета болезней листьев риса
var DefaultLabels = []string{
	"Bacterial Leaf Blight",
	"Brown Spot",
	"Leaf Smut",
}

// namesEntry элемент словаря вида {0: 'Brown Spot', 1: "Leaf Smut"}
var namesEntry = regexp.MustCompile(`(\d+)\s*:\s*(?:'([^']*)'|"([^"]*)")`)

// LabelFor имя класса или class_<id>, если имени нет.
func LabelFor(labels []string, classID int) string {
	if classID >= 0 && classID < len(labels) && labels[classID] != "" {
		return labels[classID]
	}
	return fmt.Sprintf("class_%d", classID)
}

// LoadLabelsFile читает имена классов, по одному в строке.
func LoadLabelsFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open labels file: %w", err)
	}
	defer f.Close()

	var labels []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if name := strings.TrimSpace(scanner.Text()); name != "" {
			labels = append(labels, name)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read labels file: %w", err)
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("labels file %s is empty", path)
	}
	return labels, nil
}

// ParseNames разбирает метаданные names, которые ultralytics пишет в ONNX.
func ParseNames(raw string) []string {
	matches := namesEntry.FindAllStringSubmatch(raw, -1)
	if len(matches) == 0 {
		return nil
	}

	byID := make(map[int]string, len(matches))
	ids := make([]int, 0, len(matches))
	for _, m := range matches {
		id, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		name := m[2]
		if name == "" {
			name = m[3]
		}
		if _, seen := byID[id]; !seen {
			ids = append(ids, id)
		}
		byID[id] = name
	}
	sort.Ints(ids)

	labels := make([]string, ids[len(ids)-1]+1)
	for _, id := range ids {
		labels[id] = byID[id]
	}
	return labels
}

// ResolveLabels выбирает имена классов: файл, затем метаданные модели, затем встроенные.
func ResolveLabels(labelsPath, metadataNames string) ([]string, error) {
	if labelsPath != "" {
		return LoadLabelsFile(labelsPath)
	}
	if names := ParseNames(metadataNames); len(names) > 0 {
		return names, nil
	}
	return DefaultLabels, nil
}
