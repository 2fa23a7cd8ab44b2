// Package slug строит URL-безопасные идентификаторы тарифных планов.
package slug

import (
	gosimple "github.com/gosimple/slug"
)

// Make транслитерирует строку в латиницу, приводит к нижнему регистру и
// заменяет всё, кроме букв, цифр и подчёркивания, одиночным дефисом.
func Make(s string) string {
	return gosimple.Make(s)
}

// Plan возвращает slug плана в формате "{posType}-{slug(name)}".
func Plan(posType, name string) string {
	base := Make(name)
	if base == "" {
		base = "plan"
	}
	return posType + "-" + base
}
