// Package config 提供 LanMirror 的配置管理功能。
//
// 配置优先级: 默认值 → YAML 文件 → 环境变量（LANMIRROR_ 前缀）。
package config
