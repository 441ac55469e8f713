package sim

import (
	"fmt"
	"strconv"
	"strings"
)

// NameMustBeValid panics if the name does not follow the naming convention.
// A name is a dot-separated hierarchy such as "Mesh.Router[1][2].InBuf[0]".
// Each element must be non-empty, start with a capital letter, and may carry
// integer indices in square brackets.
func NameMustBeValid(name string) {
	for _, elem := range strings.Split(name, ".") {
		if err := elemError(elem); err != nil {
			panic(fmt.Sprintf("name %q is not valid: %s", name, err))
		}
	}
}

func elemError(elem string) error {
	base, indices, _ := strings.Cut(elem, "[")
	if base == "" {
		return fmt.Errorf("element must not be empty")
	}

	if base[0] < 'A' || base[0] > 'Z' {
		return fmt.Errorf("element %q must start with a capital letter", base)
	}

	if strings.ContainsAny(base, "_\"'- ") {
		return fmt.Errorf("element %q contains an invalid character", base)
	}

	if indices == "" {
		return nil
	}

	if !strings.HasSuffix(indices, "]") {
		return fmt.Errorf("brackets in %q must match", elem)
	}

	for _, idx := range strings.Split(strings.TrimSuffix(indices, "]"), "][") {
		if _, err := strconv.Atoi(idx); err != nil {
			return fmt.Errorf("index %q in %q must be an integer", idx, elem)
		}
	}

	return nil
}

// BuildName builds a name from a parent name and an element name.
func BuildName(parentName, elementName string) string {
	if parentName == "" {
		return elementName
	}

	return parentName + "." + elementName
}

// BuildNameWithIndex builds a name from a parent name, an element name and
// one or more indices.
func BuildNameWithIndex(
	parentName, elementName string,
	index ...int,
) string {
	name := BuildName(parentName, elementName)

	for _, i := range index {
		name += "[" + strconv.Itoa(i) + "]"
	}

	return name
}
