// 版权所有 2024 LanMirror Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的指标采集能力，覆盖 HTTP 请求、
服务生命周期与资源暂存三个维度。

# 概述

本包通过 Collector 统一注册和记录 Prometheus 指标，使用 promauto
自动注册机制。所有指标按 namespace 隔离，由控制服务的 /metrics
端点暴露。

# 核心类型

  - Collector：指标收集器，持有 Counter、Histogram、Gauge 等
    Prometheus 指标。Record 方法对 nil 接收者安全。

# 主要能力

  - HTTP 指标：请求总数、耗时、响应体大小，按 method/kind/status
    分组，kind 为文件扩展名类别，避免路径造成高基数。
  - 生命周期指标：启动次数、端口绑定尝试（ok/conflict/fatal）、
    运行状态与端口 Gauge、状态变更计数、订阅者数量。
  - 暂存指标：暂存次数（staged/reused/failed）、文件复制结果、
    暂存耗时。
*/
package metrics
